package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// RunLogger writes structured JSONL events for a single director run.
type RunLogger struct {
	mu   sync.Mutex
	f    *os.File
	id   string
	path string
}

var secretPattern = regexp.MustCompile(`(?i)((?:api[_-]?key|secret|token|password)["']?\s*[:=]\s*["']?)[^\s"',}]+`)

// NewRunLogger opens <dir>/run-<id>.jsonl. On failure the returned logger
// silently drops events.
func NewRunLogger(dir, id string) *RunLogger {
	if id == "" {
		id = time.Now().Format("20060102_150405")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &RunLogger{id: id}
	}
	path := filepath.Join(dir, fmt.Sprintf("run-%s.jsonl", id))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return &RunLogger{id: id}
	}
	return &RunLogger{f: f, id: id, path: path}
}

// ID returns the run identifier.
func (r *RunLogger) ID() string {
	if r == nil {
		return ""
	}
	return r.id
}

// Path returns the JSONL file path, empty when logging is disabled.
func (r *RunLogger) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Close closes the underlying file, if open.
func (r *RunLogger) Close() error {
	if r == nil || r.f == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.f.Close()
	r.f = nil
	return err
}

// LogEvent writes a JSON line with the provided type and fields.
func (r *RunLogger) LogEvent(eventType string, fields map[string]any) {
	if r == nil {
		return
	}
	payload := map[string]any{
		"ts":     time.Now().Format(time.RFC3339Nano),
		"type":   eventType,
		"run_id": r.id,
	}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			v = Redact(s)
		}
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return
	}
	_, _ = r.f.Write(append(b, '\n'))
}

// Redact masks values that look like credentials.
func Redact(s string) string {
	return secretPattern.ReplaceAllString(s, "${1}<REDACTED>")
}
