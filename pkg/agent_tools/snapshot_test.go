package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func TestSnapshotCreateAndRestore(t *testing.T) {
	ws := t.TempDir()
	backups := filepath.Join(ws, "backups")
	writeTree(t, ws, map[string]string{
		"configs/genome.json":              `{"v":1}`,
		"projects/P/Assets/GameManager.cs": "v1",
		"projects/P/Library/huge.bin":      "cache",
		"logs/unity-build-P.log":           "log",
		".git/HEAD":                        "ref",
		"scratch.tmp":                      "tmp",
		SnapshotIgnoreFile:                 "*.tmp\n",
	})

	snap, err := SnapshotCreate(ws, backups, "before build")
	require.NoError(t, err)
	assert.Contains(t, snap.ID, "before_build")

	assert.FileExists(t, filepath.Join(snap.Path, "configs", "genome.json"))
	assert.FileExists(t, filepath.Join(snap.Path, "projects", "P", "Assets", "GameManager.cs"))
	assert.NoDirExists(t, filepath.Join(snap.Path, "projects", "P", "Library"))
	assert.NoDirExists(t, filepath.Join(snap.Path, "logs"))
	assert.NoDirExists(t, filepath.Join(snap.Path, ".git"))
	assert.NoDirExists(t, filepath.Join(snap.Path, "backups"))
	assert.NoFileExists(t, filepath.Join(snap.Path, "scratch.tmp"))

	// mutate the workspace then restore
	writeTree(t, ws, map[string]string{
		"configs/genome.json": `{"v":2}`,
		"new_file.txt":        "added later",
	})

	from, err := SnapshotRestore(backups, snap.ID, ws)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(backups, snap.ID), from)

	data, err := os.ReadFile(filepath.Join(ws, "configs", "genome.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(data))
	assert.NoFileExists(t, filepath.Join(ws, "new_file.txt"))

	// excluded content survives the restore
	assert.FileExists(t, filepath.Join(ws, "logs", "unity-build-P.log"))
	assert.FileExists(t, filepath.Join(ws, ".git", "HEAD"))
	assert.DirExists(t, filepath.Join(backups, snap.ID))
}

func TestSnapshotRestoreRejectsBadIDs(t *testing.T) {
	backups := t.TempDir()
	for _, id := range []string{"", "..", "../etc", "missing"} {
		_, err := SnapshotRestore(backups, id, t.TempDir())
		assert.Error(t, err, id)
	}
}
