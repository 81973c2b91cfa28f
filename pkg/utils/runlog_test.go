package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLoggerWritesRedactedEvents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runlogs")
	rl := NewRunLogger(dir, "r1")
	rl.LogEvent("llm_plan_raw", map[string]any{"content": `{"api_key": "sk-123"}`, "attempt": 1})
	rl.LogEvent("run_finished", map[string]any{"status": "ok"})
	require.NoError(t, rl.Close())

	assert.Equal(t, filepath.Join(dir, "run-r1.jsonl"), rl.Path())
	data, err := os.ReadFile(rl.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "llm_plan_raw", first["type"])
	assert.Equal(t, "r1", first["run_id"])
	assert.NotContains(t, first["content"], "sk-123")
	assert.Contains(t, first["content"], "<REDACTED>")

	// closed loggers drop events
	rl.LogEvent("late", nil)
}

func TestRunLoggerDisabled(t *testing.T) {
	var nilLogger *RunLogger
	nilLogger.LogEvent("x", nil)
	assert.Empty(t, nilLogger.Path())

	rl := NewRunLogger("", "")
	assert.Empty(t, rl.Path())
	assert.NotEmpty(t, rl.ID())
	rl.LogEvent("x", map[string]any{"a": 1})
	assert.NoError(t, rl.Close())
}
