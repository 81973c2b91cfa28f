package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alantheprice/director/pkg/changetracker"
	"github.com/alantheprice/director/pkg/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownTool(t *testing.T) {
	d := New(Options{})
	res := d.Dispatch(context.Background(), "delete_everything", map[string]any{"x": 1}, nil)
	assert.False(t, res.OK)
	assert.Equal(t, "unknown tool: delete_everything", res.Output)
}

func TestToolsRegistered(t *testing.T) {
	d := New(Options{})
	assert.Equal(t, []string{
		"create_project", "env_info", "find_toolchain", "list_dir", "read_file",
		"run_build", "run_cmd", "run_simulation", "snapshot_create", "snapshot_restore", "write_file",
	}, d.Tools())
	assert.True(t, d.IsBuildTool("run_build"))
	assert.False(t, d.IsBuildTool("write_file"))
}

func TestPanicIsRecovered(t *testing.T) {
	d := New(Options{})
	d.RegisterTool(ToolConfig{
		Name: "boom",
		Handler: func(ctx context.Context, d *Dispatcher, args map[string]any, ectx *ExecutionContext) ToolResult {
			panic("kaboom")
		},
	})
	res := d.Dispatch(context.Background(), "boom", nil, nil)
	assert.False(t, res.OK)
	assert.Contains(t, res.Output, "kaboom")
}

func TestCancelledContext(t *testing.T) {
	d := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := d.Dispatch(ctx, "env_info", nil, nil)
	assert.False(t, res.OK)
}

func TestResolveAliases(t *testing.T) {
	tool := ToolConfig{Parameters: []ParameterConfig{
		{"content", []string{"text", "data"}, ""},
		{"path", []string{"file_path"}, ""},
	}}
	got := resolveAliases(tool, map[string]any{"text": "a", "data": "b", "file_path": "x.cs"})
	assert.Equal(t, "a", got["content"])
	assert.Equal(t, "x.cs", got["path"])
	assert.NotContains(t, got, "text")

	got = resolveAliases(tool, map[string]any{"content": "keep", "text": "drop"})
	assert.Equal(t, "keep", got["content"])
}

func TestWriteFileValidation(t *testing.T) {
	d := New(Options{})
	ectx := NewExecutionContext(nil)

	res := d.Dispatch(context.Background(), "write_file", map[string]any{"content": "x"}, ectx)
	assert.Equal(t, "write_file requires non-empty 'path' (string).", res.Output)

	res = d.Dispatch(context.Background(), "write_file", map[string]any{"path": "a.txt", "content": 5}, ectx)
	assert.Equal(t, "write_file requires 'content' (string).", res.Output)
}

func TestWriteFileNormalization(t *testing.T) {
	f := newFixture(t)
	d := New(f.opts)
	ectx := NewExecutionContext(nil)
	proj := filepath.Join(f.root, "projects", "P")
	ectx.Set("project_path", proj)

	t.Run("AliasesAndAssetsPrefix", func(t *testing.T) {
		res := d.Dispatch(context.Background(), "write_file", map[string]any{
			"file_path": "Assets/Scripts/Player.cs",
			"text":      "class Player {}\n",
		}, ectx)
		require.True(t, res.OK, res.Output)
		data, err := os.ReadFile(filepath.Join(proj, "Assets", "Scripts", "Player.cs"))
		require.NoError(t, err)
		assert.Equal(t, "class Player {}\n", string(data))
		assert.True(t, ectx.NeedsRebuild())
	})

	t.Run("LiteralNewlinesRepaired", func(t *testing.T) {
		res := d.Dispatch(context.Background(), "write_file", map[string]any{
			"path":    "Assets/Flat.cs",
			"content": `class Flat {\n\tint x;\n}`,
		}, ectx)
		require.True(t, res.OK, res.Output)
		data, err := os.ReadFile(filepath.Join(proj, "Assets", "Flat.cs"))
		require.NoError(t, err)
		assert.Equal(t, "class Flat {\n\tint x;\n}", string(data))
	})

	t.Run("LiteralNewlinesKeptOutsideSources", func(t *testing.T) {
		p := filepath.Join(f.root, "notes.txt")
		res := d.Dispatch(context.Background(), "write_file", map[string]any{"path": p, "content": `a\nb`}, ectx)
		require.True(t, res.OK, res.Output)
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, `a\nb`, string(data))
	})

	t.Run("DirectoryLikePaths", func(t *testing.T) {
		for _, p := range []string{"Assets/Editor", "Assets/Prefabs/", `Assets\Audio\`} {
			res := d.Dispatch(context.Background(), "write_file", map[string]any{"path": p, "content": ""}, ectx)
			require.True(t, res.OK, res.Output)
			assert.True(t, strings.HasPrefix(res.Output, "mkdir ok"), p)
		}
		assert.DirExists(t, filepath.Join(proj, "Assets", "Editor"))
		assert.DirExists(t, filepath.Join(proj, "Assets", "Prefabs"))
		assert.DirExists(t, filepath.Join(proj, "Assets", "Audio"))
	})
}

func TestWriteFileOverrideAlwaysPersistsTemplate(t *testing.T) {
	f := newFixture(t)
	tracker := changetracker.New(filepath.Join(f.root, "logs", "overrides.jsonl"))
	d := New(f.opts, WithTracker(tracker))
	store := templates.NewStore("", true)

	proj := filepath.Join(f.root, "projects", "P")
	ectx := NewExecutionContext(nil)
	ectx.Set("project_path", proj)

	cases := []struct{ dest, template string }{
		{"Assets/Editor/BuildScript.cs", "BuildScript.cs"},
		{"Assets/GameManager.cs", "GameManager.cs"},
		{filepath.Join(proj, "Assets", "Rotator.cs"), "Rotator.cs"},
		{"ASSETS/HELLOFROMAI.CS", "HelloFromAI.cs"},
		{filepath.Join(proj, "Assets", "SimpleAgent.cs"), "SimpleAgent.cs"},
		{"Assets/Goal.cs", "Goal.cs"},
		{filepath.Join(proj, "Assets", "GameGenome.cs"), "GameGenome.cs"},
	}
	for _, tc := range cases {
		res := d.Dispatch(context.Background(), "write_file", map[string]any{
			"path":    tc.dest,
			"content": "// model wrote this\nclass Broken {",
		}, ectx)
		require.True(t, res.OK, res.Output)
		assert.Equal(t, tc.template, res.Data["template"])

		want, err := store.Load(tc.template)
		require.NoError(t, err)
		got, err := os.ReadFile(res.Data["path"].(string))
		require.NoError(t, err)
		assert.Equal(t, want, string(got), tc.dest)
	}

	changes, err := changetracker.ReadAll(filepath.Join(f.root, "logs", "overrides.jsonl"))
	require.NoError(t, err)
	assert.Len(t, changes, len(cases))
	assert.Contains(t, changes[0].Discarded, "model wrote this")
}

func TestWriteFileOverrideIgnoresPathSpelling(t *testing.T) {
	skipOnWindows(t)
	f := newFixture(t)
	d := New(f.opts)
	store := templates.NewStore("", true)
	proj := filepath.Join(f.root, "projects", "P")
	loose := filepath.Join(f.root, "loose")

	cases := []struct {
		name        string
		projectPath string
		dest        string
		template    string
		want        string
	}{
		{"DotWithProject", proj, "Assets/./HelloFromAI.cs", "HelloFromAI.cs", filepath.Join(proj, "Assets", "HelloFromAI.cs")},
		{"DoubleSlashWithProject", proj, "Assets//Goal.cs", "Goal.cs", filepath.Join(proj, "Assets", "Goal.cs")},
		{"ParentWithProject", proj, "Assets/x/../Rotator.cs", "Rotator.cs", filepath.Join(proj, "Assets", "Rotator.cs")},
		{"AbsoluteDot", "", proj + "/Assets/./HelloFromAI.cs", "HelloFromAI.cs", filepath.Join(proj, "Assets", "HelloFromAI.cs")},
		{"AbsoluteDoubleSlash", "", loose + "/Assets//Goal.cs", "Goal.cs", filepath.Join(loose, "Assets", "Goal.cs")},
		{"AbsoluteParent", "", loose + "/Assets/Editor/x/../BuildScript.cs", "BuildScript.cs", filepath.Join(loose, "Assets", "Editor", "BuildScript.cs")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ectx := NewExecutionContext(nil)
			if tc.projectPath != "" {
				ectx.Set("project_path", tc.projectPath)
			}
			res := d.Dispatch(context.Background(), "write_file", map[string]any{
				"path":    tc.dest,
				"content": "EVIL",
			}, ectx)
			require.True(t, res.OK, res.Output)
			assert.Equal(t, tc.template, res.Data["template"])
			assert.Equal(t, tc.want, res.Data["path"])

			want, err := store.Load(tc.template)
			require.NoError(t, err)
			got, err := os.ReadFile(tc.want)
			require.NoError(t, err)
			assert.Equal(t, want, string(got))
			assert.True(t, ectx.NeedsRebuild())
		})
	}
}

func TestWriteFileOnlySourcesNeedRebuild(t *testing.T) {
	f := newFixture(t)
	d := New(f.opts)
	proj := filepath.Join(f.root, "projects", "P")

	for _, name := range []string{"Assets/notes.txt", "Assets/config.json"} {
		ectx := NewExecutionContext(nil)
		ectx.Set("project_path", proj)
		res := d.Dispatch(context.Background(), "write_file", map[string]any{"path": name, "content": "{}"}, ectx)
		require.True(t, res.OK, res.Output)
		assert.False(t, ectx.NeedsRebuild(), name)
	}

	ectx := NewExecutionContext(nil)
	ectx.Set("project_path", proj)
	res := d.Dispatch(context.Background(), "write_file", map[string]any{"path": "Assets/Scripts/Enemy.CS", "content": "class Enemy {}\n"}, ectx)
	require.True(t, res.OK, res.Output)
	assert.True(t, ectx.NeedsRebuild())
}

func TestRunCmd(t *testing.T) {
	skipOnWindows(t)
	f := newFixture(t)
	d := New(f.opts)
	ctx := context.Background()

	t.Run("StringCommandIsTokenized", func(t *testing.T) {
		res := d.Dispatch(ctx, "run_cmd", map[string]any{"cmd": "echo hello   world"}, NewExecutionContext(nil))
		require.True(t, res.OK, res.Output)
		assert.Equal(t, "hello world", res.Output)
	})

	t.Run("ListCommandAndAlias", func(t *testing.T) {
		res := d.Dispatch(ctx, "run_cmd", map[string]any{"command": []any{"echo", "a b"}}, NewExecutionContext(nil))
		require.True(t, res.OK, res.Output)
		assert.Equal(t, "a b", res.Output)
	})

	t.Run("NonStringCommandIsEmpty", func(t *testing.T) {
		res := d.Dispatch(ctx, "run_cmd", map[string]any{"cmd": 42}, NewExecutionContext(nil))
		assert.False(t, res.OK)
		assert.Contains(t, res.Output, "non-empty 'cmd'")
	})

	t.Run("EnvPlaceholderInCwd", func(t *testing.T) {
		ectx := NewExecutionContext(map[string]any{"cwd": f.root})
		res := d.Dispatch(ctx, "run_cmd", map[string]any{"cmd": "pwd", "cwd": "${env_info.cwd}"}, ectx)
		require.True(t, res.OK, res.Output)
		assert.Equal(t, filepath.Base(f.root), filepath.Base(res.Output))
	})

	t.Run("UnresolvedPlaceholderDropsCwd", func(t *testing.T) {
		res := d.Dispatch(ctx, "run_cmd", map[string]any{"cmd": "pwd", "cwd": "${env_info.nowhere}/x"}, NewExecutionContext(nil))
		require.True(t, res.OK, res.Output)
	})

	t.Run("BuildLogCopyIsNoop", func(t *testing.T) {
		res := d.Dispatch(ctx, "run_cmd", map[string]any{"cmd": "cp logs/unity-build-P.log /nonexistent/dir/"}, NewExecutionContext(nil))
		require.True(t, res.OK)
		assert.Contains(t, res.Output, "log save step ignored")
	})

	t.Run("MkdirIsIdempotent", func(t *testing.T) {
		dir := filepath.Join(f.root, "made", "deep")
		for i := 0; i < 2; i++ {
			res := d.Dispatch(ctx, "run_cmd", map[string]any{"cmd": []any{"mkdir", "-p", dir}}, NewExecutionContext(nil))
			require.True(t, res.OK, res.Output)
		}
		assert.DirExists(t, dir)
	})

	t.Run("NonZeroExit", func(t *testing.T) {
		res := d.Dispatch(ctx, "run_cmd", map[string]any{"cmd": []any{"sh", "-c", "echo oops; exit 3"}}, NewExecutionContext(nil))
		assert.False(t, res.OK)
		assert.Equal(t, 3, res.Data["exit_code"])
		assert.Contains(t, res.Output, "oops")
	})

	t.Run("DestructiveBlocked", func(t *testing.T) {
		opts := f.opts
		opts.BlockDestructive = true
		strict := New(opts)
		res := strict.Dispatch(ctx, "run_cmd", map[string]any{"cmd": "rm -rf " + f.root}, NewExecutionContext(nil))
		assert.False(t, res.OK)
		assert.Contains(t, res.Output, "blocked destructive command")
		assert.DirExists(t, f.root)
	})
}

func TestRunBuildFailsFastWithoutContext(t *testing.T) {
	f := newFixture(t)
	d := New(f.opts)

	res := d.Dispatch(context.Background(), "run_build", map[string]any{}, NewExecutionContext(nil))
	assert.False(t, res.OK)
	assert.Contains(t, res.Output, "requires toolchain_path")

	ectx := NewExecutionContext(nil)
	ectx.Set("toolchain_path", f.editor)
	res = d.Dispatch(context.Background(), "run_build", map[string]any{}, ectx)
	assert.False(t, res.OK)
	assert.Contains(t, res.Output, "requires project_path")
}

func TestListAndReadFile(t *testing.T) {
	f := newFixture(t)
	d := New(f.opts)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "a.txt"), []byte("alpha"), 0644))

	res := d.Dispatch(context.Background(), "list_dir", map[string]any{"dir": f.root}, nil)
	require.True(t, res.OK, res.Output)
	assert.Contains(t, res.Output, "a.txt")
	assert.Contains(t, res.Output, "bin")

	res = d.Dispatch(context.Background(), "read_file", map[string]any{"file_path": filepath.Join(f.root, "a.txt"), "max_bytes": "3"}, nil)
	require.True(t, res.OK, res.Output)
	assert.Equal(t, "alp", res.Output)

	res = d.Dispatch(context.Background(), "read_file", map[string]any{"path": filepath.Join(f.root, "missing")}, nil)
	assert.False(t, res.OK)
}

func TestEnvInfoUsesContextFacts(t *testing.T) {
	d := New(Options{})
	res := d.Dispatch(context.Background(), "env_info", nil, NewExecutionContext(map[string]any{"os": "Linux"}))
	require.True(t, res.OK)
	assert.Equal(t, "Linux", res.Data["os"])

	res = d.Dispatch(context.Background(), "env_info", nil, nil)
	require.True(t, res.OK)
	assert.Contains(t, res.Data, "cwd")
}

func TestSnapshotTools(t *testing.T) {
	f := newFixture(t)
	d := New(f.opts)
	ectx := NewExecutionContext(nil)
	p := filepath.Join(f.root, "state.txt")
	require.NoError(t, os.WriteFile(p, []byte("v1"), 0644))

	res := d.Dispatch(context.Background(), "snapshot_create", map[string]any{"label": "pre"}, ectx)
	require.True(t, res.OK, res.Output)
	id := res.Data["snapshot_id"].(string)
	got, ok := ectx.Get("last_snapshot_id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	require.NoError(t, os.WriteFile(p, []byte("v2"), 0644))
	res = d.Dispatch(context.Background(), "snapshot_restore", map[string]any{"id": id}, ectx)
	require.True(t, res.OK, res.Output)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	res = d.Dispatch(context.Background(), "snapshot_restore", map[string]any{}, ectx)
	assert.False(t, res.OK)
}
