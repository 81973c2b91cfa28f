// Package changetracker records model-authored content that was replaced by
// a trusted template, with a diff against what was actually written.
package changetracker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	overriddenStatus = "overridden"
	maxStoredDiff    = 40
)

// Change describes one overridden write.
type Change struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Template  string    `json:"template"`
	Status    string    `json:"status"`
	Stats     DiffStats `json:"stats"`
	Diff      string    `json:"diff"`
	Discarded string    `json:"discarded,omitempty"`
}

// Tracker appends changes to a JSONL file and keeps them in memory.
// The zero value and a nil *Tracker both discard records.
type Tracker struct {
	mu      sync.Mutex
	path    string
	changes []Change
}

// New returns a tracker persisting to path. An empty path keeps records in
// memory only.
func New(path string) *Tracker {
	return &Tracker{path: path}
}

// RecordOverride stores the discarded model content for dest.
func (t *Tracker) RecordOverride(dest, template, modelContent, templateContent string) (Change, error) {
	c := Change{
		Timestamp: time.Now(),
		Path:      dest,
		Template:  template,
		Status:    overriddenStatus,
		Stats:     Stats(LineDiff(modelContent, templateContent)),
		Diff:      GetDiff(filepath.Base(dest), modelContent, templateContent, maxStoredDiff, false),
		Discarded: modelContent,
	}
	if t == nil {
		return c, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.changes = append(t.changes, c)
	if t.path == "" {
		return c, nil
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return c, fmt.Errorf("failed to create changes directory: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return c, fmt.Errorf("failed to open change log: %w", err)
	}
	defer f.Close()
	line, err := json.Marshal(c)
	if err != nil {
		return c, err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return c, fmt.Errorf("failed to append change: %w", err)
	}
	return c, nil
}

// Changes returns the records made through this tracker.
func (t *Tracker) Changes() []Change {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Change, len(t.changes))
	copy(out, t.changes)
	return out
}

// ReadAll loads every change persisted at path.
func ReadAll(path string) ([]Change, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Change
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var c Change
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			return out, fmt.Errorf("corrupt change record: %w", err)
		}
		out = append(out, c)
	}
	return out, sc.Err()
}
