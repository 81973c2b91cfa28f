package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultManifest(t *testing.T) {
	m, err := DefaultManifest()
	require.NoError(t, err)

	required := map[string]bool{}
	for _, e := range m.Preflight {
		if e.Required {
			required[e.Template] = true
		}
	}
	for _, name := range []string{"Rotator.cs", "HelloFromAI.cs", "BuildScript.cs"} {
		assert.True(t, required[name], "%s must be required", name)
	}
	assert.Equal(t, "game_genome.json", m.GenomeSnapshot)

	store := NewStore("", true)
	for _, e := range m.Preflight {
		_, err := store.Load(e.Template)
		assert.NoError(t, err, "built-in template %s", e.Template)
	}
}

func TestMatchOverride(t *testing.T) {
	m, err := DefaultManifest()
	require.NoError(t, err)

	tests := []struct {
		dest     string
		template string
		ok       bool
	}{
		{"projects/game_001/Assets/Editor/BuildScript.cs", "BuildScript.cs", true},
		{`C:\work\projects\P\Assets\Editor\BUILDSCRIPT.CS`, "BuildScript.cs", true},
		{"  /abs/p/Assets/GameManager.cs ", "GameManager.cs", true},
		{"Assets/Rotator.cs", "Rotator.cs", true},
		{"/abs/p/Assets/./HelloFromAI.cs", "HelloFromAI.cs", true},
		{"/abs/p/Assets//Goal.cs", "Goal.cs", true},
		{"/abs/p/Assets/x/../SimpleAgent.cs", "SimpleAgent.cs", true},
		{"./Assets/Editor/./BuildScript.cs", "BuildScript.cs", true},
		{"projects/P/Assets/Scripts/Rotator.cs", "", false},
		{"projects/P/Assets/MyGameManager.cs", "", false},
		{"projects/P/Assets/ChaserAI.cs", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			o, ok := m.MatchOverride(tt.dest)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.template, o.Template)
		})
	}
}

func TestLoadManifestFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
preflight:
  - dest: Assets/Only.cs
    template: Only.cs
    required: true
overrides:
  - suffix: \Assets\Only.cs
    template: Only.cs
`), 0644))

	m, err := LoadManifest(p)
	require.NoError(t, err)
	require.Len(t, m.Preflight, 1)
	assert.Equal(t, "/assets/only.cs", m.Overrides[0].Suffix)

	t.Run("MissingFileUsesDefault", func(t *testing.T) {
		m, err := LoadManifest(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.NotEmpty(t, m.Overrides)
	})

	t.Run("RejectsEscapingDest", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("preflight:\n  - dest: ../outside.cs\n    template: X.cs\n"), 0644))
		_, err := LoadManifest(bad)
		assert.Error(t, err)
	})
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Rotator.cs"), []byte("// local"), 0644))

	s := NewStore(dir, true)
	content, err := s.Load("Rotator.cs")
	require.NoError(t, err)
	assert.Equal(t, "// local", content, "directory wins over built-in")

	content, err = s.Load("Goal.cs")
	require.NoError(t, err)
	assert.Contains(t, content, "class Goal")

	strict := NewStore(dir, false)
	_, err = strict.Load("Goal.cs")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Load("../secret")
	assert.Error(t, err)

	assert.Contains(t, s.Names(), "Rotator.cs")
	assert.Contains(t, s.Names(), "BuildScript.cs")
}
