package history

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendAndRecent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "state", "state.json"))

	st, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, st.History)

	require.NoError(t, s.Append(Entry{ID: "r1", Goal: "g", Status: StatusFail, Attempts: []Attempt{
		{Number: 1, Outcome: "rejected", Reason: "tool forbidden by contract: run_cmd"},
	}}))
	require.NoError(t, s.Append(Entry{ID: "r2", Goal: "g2", Status: StatusOK, Attempts: []Attempt{
		{Number: 1, Outcome: "failed", Reason: "build failed"},
		{Number: 2, Outcome: "succeeded"},
	}}))

	st, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "g2", st.Goal)
	assert.Equal(t, StatusOK, st.LastResult)
	require.Len(t, st.History, 2)
	assert.False(t, st.History[0].Timestamp.IsZero())

	recent, err := s.Recent(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "r2", recent[0].ID)
	assert.Equal(t, []string{"build failed"}, recent[0].Reasons())

	all, err := s.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "No runs recorded.\n", Format(nil))

	out := Format([]Entry{{
		ID:     "r1",
		Goal:   "build the game",
		Status: StatusFail,
		Mode:   "Collect",
		Attempts: []Attempt{
			{Number: 1, Outcome: "rejected", Reason: strings.Repeat("word ", 30)},
		},
	}})
	assert.Contains(t, out, "Run ID: r1")
	assert.Contains(t, out, "Mode: Collect")
	assert.Contains(t, out, "Result: fail after 1 attempt(s)")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 80)
	}
}
