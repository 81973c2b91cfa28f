package plan

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	doc := map[string]any{
		"steps": []any{
			map[string]any{
				"id":    float64(1),
				"title": "setup",
				"tool_calls": []any{
					map[string]any{"tool": "find_toolchain"},
					map[string]any{"tool": "create_project", "args": map[string]any{"project_name": "P"}},
				},
			},
			map[string]any{"title": "nothing to do"},
		},
	}

	got, err := Decode(doc)
	require.NoError(t, err)

	want := Plan{Steps: []Step{
		{
			ID:    "1",
			Title: "setup",
			ToolCalls: []ToolCall{
				{Tool: "find_toolchain", Args: map[string]any{}},
				{Tool: "create_project", Args: map[string]any{"project_name": "P"}},
			},
		},
		{ID: "step-2", Title: "nothing to do"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decoded plan mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"find_toolchain", "create_project"}, got.ToolNames())
	assert.Equal(t, 2, got.CallCount())
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	_, err := Decode(map[string]any{"steps": []any{"oops"}})
	assert.Error(t, err)

	_, err = Decode(map[string]any{})
	assert.Error(t, err)
}

func TestSaveLoadAndMentions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "master_plan.json")
	p := Plan{Steps: []Step{{ID: "s1", Title: "write", ToolCalls: []ToolCall{
		{Tool: "write_file", Args: map[string]any{"path": "Assets/Editor/BuildScript.cs", "content": "x"}},
	}}}}
	require.NoError(t, Save(path, p))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "write_file", loaded.Steps[0].ToolCalls[0].Tool)

	missing := loaded.MissingMentions([]string{"BuildScript.cs", "GameManager.cs"})
	assert.Equal(t, []string{"GameManager.cs"}, missing)
}
