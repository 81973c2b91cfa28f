// Package history keeps the durable record of controller runs in a single
// JSON state file.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	tools "github.com/alantheprice/director/pkg/agent_tools"
)

const (
	StatusOK   = "ok"
	StatusFail = "fail"
)

// Attempt is one planning attempt of a run.
type Attempt struct {
	Number  int    `json:"number"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Steps   int    `json:"steps,omitempty"`
	Calls   int    `json:"calls,omitempty"`
}

// Entry records one run.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Goal      string    `json:"goal"`
	Status    string    `json:"result"`
	Mode      string    `json:"mode,omitempty"`
	Attempts  []Attempt `json:"attempts"`
	RunLog    string    `json:"run_log,omitempty"`
}

// Reasons returns the failure reasons of every attempt, in order.
func (e Entry) Reasons() []string {
	var out []string
	for _, a := range e.Attempts {
		if a.Reason != "" {
			out = append(out, a.Reason)
		}
	}
	return out
}

// State is the content of the state file.
type State struct {
	Goal       string  `json:"goal"`
	LastResult string  `json:"last_result,omitempty"`
	History    []Entry `json:"history"`
}

// Store reads and rewrites the state file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the stored state, or an empty one when the file is missing.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &State{Goal: "bootstrapping"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state %s: %w", s.path, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state %s: %w", s.path, err)
	}
	return &st, nil
}

// Append adds e and rewrites the file atomically.
func (s *Store) Append(e Entry) error {
	st, err := s.Load()
	if err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	st.Goal = e.Goal
	st.LastResult = e.Status
	st.History = append(st.History, e)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return tools.WriteFileAtomic(s.path, data)
}

// Recent returns up to limit entries, newest first. A limit <= 0 returns all.
func (s *Store) Recent(limit int) ([]Entry, error) {
	st, err := s.Load()
	if err != nil {
		return nil, err
	}
	n := len(st.History)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, st.History[i])
	}
	return out, nil
}
