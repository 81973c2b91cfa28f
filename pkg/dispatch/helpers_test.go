package dispatch

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/alantheprice/director/pkg/metrics"
	"github.com/alantheprice/director/pkg/templates"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// fakeEditor mimics the editor CLI: -createProject lays out a project and
// -executeMethod writes the log and a build, failing when Assets/Broken.cs
// exists.
const fakeEditor = `#!/bin/sh
mode=""
proj=""
log=""
while [ $# -gt 0 ]; do
  case "$1" in
    -createProject) proj="$2"; mode=create; shift ;;
    -projectPath) proj="$2"; shift ;;
    -executeMethod) mode=build; shift ;;
    -logFile) log="$2"; shift ;;
  esac
  shift
done
if [ "$mode" = create ]; then
  mkdir -p "$proj/ProjectSettings" "$proj/Assets"
  echo "created $proj"
  exit 0
fi
if [ -f "$proj/Assets/Broken.cs" ]; then
  echo "Assets/Broken.cs(3,9): error CS1002: ; expected" > "$log"
  echo "Scripts have compiler errors." >> "$log"
  exit 1
fi
mkdir -p "$proj/Builds"
echo "Build succeeded" > "$log"
printf '#!/bin/sh\necho "{\\"win_rate\\": 0.7, \\"total_rounds\\": 5}" > "$(dirname "$0")/metrics.json"\n' > "$proj/Builds/Game001.exe"
chmod +x "$proj/Builds/Game001.exe"
exit 0
`

type fixture struct {
	root    string
	editor  string
	opts    Options
	metrics *metrics.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	editor := filepath.Join(root, "bin", "Unity")
	require.NoError(t, os.MkdirAll(filepath.Dir(editor), 0755))
	require.NoError(t, os.WriteFile(editor, []byte(fakeEditor), 0755))

	return &fixture{
		root:   root,
		editor: editor,
		opts: Options{
			WorkspaceDir:   root,
			ProjectsDir:    filepath.Join(root, "projects"),
			BackupsDir:     filepath.Join(root, "backups"),
			LogsDir:        filepath.Join(root, "logs"),
			EditorGlobs:    []string{filepath.Join(root, "bin", "Unit*")},
			BuildMethod:    "BuildScript.MakeBuild",
			LogPrefix:      "unity-build-",
			CompileMarkers: []string{"error CS", "Scripts have compiler errors", "Compilation failed"},
			Executable:     filepath.Join("Builds", "Game001.exe"),
			MetricsFile:    filepath.Join("Builds", "metrics.json"),
		},
		metrics: metrics.New(),
	}
}

func toolCalls(t *testing.T, rec *metrics.Recorder, tool, result string) float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "director_tool_calls_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["tool"] == tool && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

type templateSet struct {
	store    *templates.Store
	manifest *templates.Manifest
}

// templatesWithout builds a strict template store whose manifest names a
// required template that does not exist, next to an optional one.
func templatesWithout(t *testing.T) templateSet {
	t.Helper()
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`
preflight:
  - dest: Assets/Optional.cs
    template: Optional.cs
  - dest: Assets/Required.cs
    template: Required.cs
    required: true
`), 0644))
	m, err := templates.LoadManifest(manifestPath)
	require.NoError(t, err)
	return templateSet{store: templates.NewStore(dir, false), manifest: m}
}
