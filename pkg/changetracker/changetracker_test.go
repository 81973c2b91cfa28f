package changetracker

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes", "overrides.jsonl")
	tr := New(path)

	model := "class BuildScript {\n  // broken\n}\n"
	tmpl := "class BuildScript {\n  public static void MakeBuild() {}\n}\n"

	c, err := tr.RecordOverride("projects/P/Assets/Editor/BuildScript.cs", "BuildScript.cs", model, tmpl)
	require.NoError(t, err)
	assert.Equal(t, DiffStats{Additions: 1, Deletions: 1}, c.Stats)
	assert.Contains(t, c.Diff, "-   // broken")
	assert.Contains(t, c.Diff, "+   public static void MakeBuild() {}")
	assert.False(t, strings.Contains(c.Diff, ResetColor), "stored diffs are uncolored")

	stored, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model, stored[0].Discarded)
	assert.Equal(t, "overridden", stored[0].Status)
	assert.Len(t, tr.Changes(), 1)
}

func TestNilTrackerDiscards(t *testing.T) {
	var tr *Tracker
	c, err := tr.RecordOverride("a.cs", "A.cs", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "a.cs", c.Path)
	assert.Nil(t, tr.Changes())
}

func TestGetDiffTruncates(t *testing.T) {
	orig := "a\nb\nc\nd\n"
	diff := GetDiff("f", orig, "", 2, true)
	assert.Contains(t, diff, RedColor+"- a"+ResetColor)
	assert.Contains(t, diff, "...")
	assert.NotContains(t, diff, "- c")

	none, err := ReadAll(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLineDiffOnRepetitiveJSON(t *testing.T) {
	before := `{
  "mode": "Collect",
  "seed": 42,
  "arena": {
    "size": 20
  },
  "agent": {
    "speed": 3.5
  },
  "enemy": {
    "speed": 2
  }
}
`
	after := strings.Replace(strings.Replace(before, `"seed": 42`, `"seed": 43`, 1), `"speed": 2`, `"speed": 2.5`, 1)

	diffs := LineDiff(before, after)
	assert.Equal(t, DiffStats{Additions: 2, Deletions: 2}, Stats(diffs))

	diff := GetDiff("genome", before, after, 0, false)
	assert.Contains(t, diff, `-   "seed": 42,`)
	assert.Contains(t, diff, `+   "seed": 43,`)
	assert.Contains(t, diff, `-     "speed": 2`)
	assert.Contains(t, diff, `+     "speed": 2.5`)
	assert.NotContains(t, diff, `"mode"`)
	assert.NotContains(t, diff, `"arena"`)
}
