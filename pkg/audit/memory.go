package audit

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	closed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = false
	return nil
}

func (s *MemoryStore) Append(_ context.Context, r Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	r.ID = int64(len(s.records) + 1)
	s.records = append(s.records, r)
	return r.ID, nil
}

func (s *MemoryStore) Recent(_ context.Context, mode string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	var out []Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if mode != "" && s.records[i].Mode != mode {
			continue
		}
		out = append(out, s.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
