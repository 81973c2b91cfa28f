package tools

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxReadBytes caps read_file when the caller does not ask for less.
const DefaultMaxReadBytes = 200_000

// ReadFile returns at most maxBytes of filePath, with invalid UTF-8 replaced.
func ReadFile(filePath string, maxBytes int) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("empty file path provided")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxReadBytes
	}

	cleanPath := filepath.Clean(filePath)

	info, err := os.Stat(cleanPath)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", cleanPath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to access file %s: %w", cleanPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", cleanPath)
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", cleanPath, err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, int64(maxBytes)))
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", cleanPath, err)
	}
	return strings.ToValidUTF8(string(content), "�"), nil
}

// DirEntry is one list_dir item.
type DirEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ListDir returns the entries of path sorted by name.
func ListDir(path string) ([]DirEntry, error) {
	if path == "" {
		path = "."
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	items := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		kind := "file"
		if e.IsDir() {
			kind = "dir"
		}
		items = append(items, DirEntry{Name: e.Name(), Type: kind})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}
