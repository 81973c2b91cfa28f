package utils

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logRecord struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
	Error string `json:"error"`
	CID   string `json:"cid"`
}

func TestLogger_JSONModeWritesJSONWithCID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "director.log")
	t.Setenv("DIRECTOR_LOG_FILE", logPath)
	t.Setenv("DIRECTOR_JSON_LOGS", "1")
	t.Setenv("DIRECTOR_CORRELATION_ID", "abc123")

	l := GetLogger(true)
	l.Log("hello world")
	_ = l.Close()

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()
	var lastLine string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lastLine = scanner.Text()
	}
	require.NoError(t, scanner.Err())

	var rec logRecord
	require.NoError(t, json.Unmarshal([]byte(lastLine), &rec), "content=%q", lastLine)
	assert.Equal(t, logRecord{Level: "info", Msg: "hello world", CID: "abc123"}, rec)
}

func TestLogger_ProcessStepEchoesUnlessQuiet(t *testing.T) {
	var file, console bytes.Buffer
	l := NewLogger(&file, &console)

	l.LogProcessStep("planning attempt 1")
	assert.Equal(t, "planning attempt 1\n", console.String())
	assert.Contains(t, file.String(), "Process Step: planning attempt 1")

	l.quiet = true
	l.LogProcessStep("hidden")
	assert.NotContains(t, console.String(), "hidden")

	l.jsonMode = true
	l.SetCorrelationID("run-1")
	file.Reset()
	l.LogError(errors.New("boom"))
	var rec logRecord
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	assert.Equal(t, "error", rec.Level)
	assert.Equal(t, "boom", rec.Error)
	assert.Equal(t, "run-1", rec.CID)

	file.Reset()
	l.LogError(nil)
	assert.Empty(t, file.String())

	var discard *Logger
	discard.Log("x")
	discard.Logf("%d", 1)
	discard.LogProcessStep("y")
	discard.LogError(errors.New("z"))
}

func TestRunLogger(t *testing.T) {
	dir := t.TempDir()
	rl := NewRunLogger(dir, "r1")
	rl.LogEvent("llm_plan_raw", map[string]any{"content": `{"api_key": "sk-123"} token=abc`, "attempt": 1})
	rl.LogEvent("run_finished", map[string]any{"status": "ok"})
	require.NoError(t, rl.Close())
	rl.LogEvent("after_close", nil)

	data, err := os.ReadFile(filepath.Join(dir, "run-r1.jsonl"))
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "llm_plan_raw", first["type"])
	assert.Equal(t, "r1", first["run_id"])
	assert.Equal(t, float64(1), first["attempt"])
	assert.NotContains(t, first["content"], "sk-123")
	assert.NotContains(t, first["content"], "abc")
	assert.Contains(t, first["content"], "<REDACTED>")

	var nilLogger *RunLogger
	nilLogger.LogEvent("x", nil)
	assert.Equal(t, "", nilLogger.ID())
}
