package tools

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes content to filePath, creating parent directories, and
// returns the number of bytes persisted.
func WriteFile(filePath, content string) (int, error) {
	if filePath == "" {
		return 0, fmt.Errorf("empty file path provided")
	}

	cleanPath := filepath.Clean(filePath)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(cleanPath, []byte(content), 0644); err != nil {
		return 0, fmt.Errorf("failed to write file %s: %w", cleanPath, err)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return 0, fmt.Errorf("file written but failed to stat %s: %w", cleanPath, err)
	}
	return int(info.Size()), nil
}

// WriteFileAtomic writes to a sibling temp file and renames it over path, so
// readers observe either the old or the new content.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates path and any missing parents. Existing directories are fine.
func EnsureDir(path string) error {
	if path == "" {
		return fmt.Errorf("empty directory path provided")
	}
	if err := os.MkdirAll(filepath.Clean(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
