package tools

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	ignore "github.com/sabhiram/go-gitignore"
)

// SnapshotIgnoreFile holds extra exclusion rules at the workspace root.
const SnapshotIgnoreFile = ".directorignore"

// DefaultSnapshotExclusions apply at any depth. Toolchain caches inside
// generated projects are large and reproducible.
var DefaultSnapshotExclusions = []string{
	".git/",
	".venv/",
	"__pycache__/",
	".pytest_cache/",
	".director/",
	"logs/",
	"backups/",
	"Library/",
	"Temp/",
	"Obj/",
	"Build/",
	"Builds/",
	"UserSettings/",
}

// Snapshot identifies a stored copy of the workspace.
type Snapshot struct {
	ID   string `json:"snapshot_id"`
	Path string `json:"path"`
}

func snapshotRules(srcDir, backupsDir string) *ignore.GitIgnore {
	rules := append([]string{}, DefaultSnapshotExclusions...)
	if name := filepath.Base(filepath.Clean(backupsDir)); name != "." && name != string(filepath.Separator) {
		rules = append(rules, name+"/")
	}
	if extra, err := os.ReadFile(filepath.Join(srcDir, SnapshotIgnoreFile)); err == nil {
		rules = append(rules, strings.Split(string(extra), "\n")...)
	}
	return ignore.CompileIgnoreLines(rules...)
}

func excluded(rules *ignore.GitIgnore, rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	if rules.MatchesPath(rel) {
		return true
	}
	return isDir && rules.MatchesPath(rel+"/")
}

// SnapshotCreate copies srcDir into a new directory under backupsDir.
func SnapshotCreate(srcDir, backupsDir, label string) (Snapshot, error) {
	if label == "" {
		label = "snapshot"
	}
	srcAbs, err := filepath.Abs(srcDir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to resolve %s: %w", srcDir, err)
	}
	backupsAbs, err := filepath.Abs(backupsDir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to resolve %s: %w", backupsDir, err)
	}

	id := fmt.Sprintf("%s-%s-%s",
		time.Now().Format("20060102-150405"),
		strings.ReplaceAll(label, " ", "_"),
		uuid.NewString()[:8])
	dst := filepath.Join(backupsAbs, id)

	if err := os.MkdirAll(dst, 0755); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	rules := snapshotRules(srcAbs, backupsAbs)
	if err := copyTree(srcAbs, dst, rules, backupsAbs); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ID: id, Path: dst}, nil
}

// SnapshotRestore replaces the non-excluded content of dstDir with the
// snapshot. Excluded entries in dstDir (backups, logs, caches) are kept.
func SnapshotRestore(backupsDir, snapshotID, dstDir string) (string, error) {
	if snapshotID == "" || strings.ContainsAny(snapshotID, `/\`) || snapshotID == ".." {
		return "", fmt.Errorf("invalid snapshot id: %q", snapshotID)
	}
	src := filepath.Join(backupsDir, snapshotID)
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("snapshot not found: %s", src)
	}

	dstAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return "", err
	}
	backupsAbs, _ := filepath.Abs(backupsDir)
	rules := snapshotRules(dstAbs, backupsAbs)

	entries, err := os.ReadDir(dstAbs)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read %s: %w", dstAbs, err)
	}
	for _, e := range entries {
		full := filepath.Join(dstAbs, e.Name())
		if full == backupsAbs || excluded(rules, e.Name(), e.IsDir()) {
			continue
		}
		if err := os.RemoveAll(full); err != nil {
			return "", fmt.Errorf("failed to clear %s: %w", full, err)
		}
	}

	if err := copyTree(src, dstAbs, nil, ""); err != nil {
		return "", err
	}
	return src, nil
}

func copyTree(src, dst string, rules *ignore.GitIgnore, skipAbs string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if path == skipAbs || (rules != nil && excluded(rules, rel, d.IsDir())) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
