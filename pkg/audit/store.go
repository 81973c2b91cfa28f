// Package audit keeps the append-only log of genome evolution cycles.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/alantheprice/director/pkg/genome"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("audit store is closed")

// Record is one evolution cycle. Rows are never updated.
type Record struct {
	ID             int64
	Timestamp      time.Time
	Mode           string
	WinRate        float64
	AgentSpeed     float64
	EnemySpeed     float64
	ObstaclesCount int
	TimeLimit      float64
	MetricsJSON    string
	GenomeJSON     string
	Report         string
}

// NewRecord fills the genome columns from g.
func NewRecord(mode string, winRate float64, g genome.Genome, metricsJSON, genomeJSON, report string) Record {
	return Record{
		Timestamp:      time.Now().UTC(),
		Mode:           mode,
		WinRate:        winRate,
		AgentSpeed:     g.Agent.Speed,
		EnemySpeed:     g.Rules.EnemySpeed,
		ObstaclesCount: g.Obstacles.Count,
		TimeLimit:      g.Rules.TimeLimit,
		MetricsJSON:    metricsJSON,
		GenomeJSON:     genomeJSON,
		Report:         report,
	}
}

// Store persists evolution records.
type Store interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, r Record) (int64, error)
	// Recent returns up to limit records, newest first. An empty mode
	// matches every mode; limit <= 0 means no limit.
	Recent(ctx context.Context, mode string, limit int) ([]Record, error)
	Close() error
}

// Open returns a SQLite store for path, or a memory store when path is empty.
// The store is initialized.
func Open(ctx context.Context, path string) (Store, error) {
	var s Store
	if path == "" {
		s = NewMemoryStore()
	} else {
		s = NewSQLiteStore(path)
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
