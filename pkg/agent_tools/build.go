package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrEditorNotFound is returned when no toolchain binary matches the search globs.
var ErrEditorNotFound = errors.New("editor executable not found")

// DefaultEditorGlobs are the usual install locations of the editor binary.
var DefaultEditorGlobs = []string{
	`C:\Program Files\Unity\Hub\Editor\*\Editor\Unity.exe`,
	`C:\Program Files\Unity Hub\Editor\*\Editor\Unity.exe`,
	`C:\Program Files\Unity\Editor\Unity.exe`,
	`C:\Program Files (x86)\Unity\Hub\Editor\*\Editor\Unity.exe`,
	"/Applications/Unity/Hub/Editor/*/Unity.app/Contents/MacOS/Unity",
	"/opt/unity/editors/*/Editor/Unity",
	"~/Unity/Hub/Editor/*/Editor/Unity",
}

// FindEditor expands globs and returns the lexicographically last match,
// which for versioned install folders is the newest release.
func FindEditor(globs []string) (string, []string, error) {
	seen := make(map[string]bool)
	var candidates []string
	home, _ := os.UserHomeDir()

	for _, pattern := range globs {
		if len(pattern) > 1 && pattern[0] == '~' && home != "" {
			pattern = filepath.Join(home, pattern[1:])
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				candidates = append(candidates, m)
			}
		}
	}

	if len(candidates) == 0 {
		return "", nil, ErrEditorNotFound
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], candidates, nil
}

// CreateProject asks the editor to create a new project headless.
func CreateProject(ctx context.Context, editor, projectPath string, timeout time.Duration) (CommandResult, string, error) {
	if editor == "" {
		return CommandResult{}, "", fmt.Errorf("editor path is required")
	}
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return CommandResult{}, "", fmt.Errorf("failed to resolve project path: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return CommandResult{}, abs, fmt.Errorf("failed to create project dir: %w", err)
	}

	argv := []string{editor, "-batchmode", "-nographics", "-quit", "-createProject", abs}
	res, err := RunCommand(ctx, argv, "", timeout)
	return res, abs, err
}

// ExecuteMethod runs a static editor method inside an existing project and
// writes the editor log to logFile.
func ExecuteMethod(ctx context.Context, editor, projectPath, method, logFile string, timeout time.Duration) (CommandResult, error) {
	projectAbs, err := filepath.Abs(projectPath)
	if err != nil {
		return CommandResult{}, fmt.Errorf("failed to resolve project path: %w", err)
	}
	logAbs, err := filepath.Abs(logFile)
	if err != nil {
		return CommandResult{}, fmt.Errorf("failed to resolve log path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logAbs), 0755); err != nil {
		return CommandResult{}, fmt.Errorf("failed to create log dir: %w", err)
	}

	argv := []string{
		editor,
		"-batchmode", "-nographics", "-quit",
		"-projectPath", projectAbs,
		"-executeMethod", method,
		"-logFile", logAbs,
	}
	return RunCommand(ctx, argv, "", timeout)
}
