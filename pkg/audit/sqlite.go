package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create audit dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open audit db: %w", err)
	}
	// one writer; the pure-Go driver serializes anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to open audit db: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.closed = false
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS evolution (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			game_mode TEXT NOT NULL,
			win_rate REAL,
			agent_speed REAL,
			enemy_speed REAL,
			obstacles_count INTEGER,
			time_limit REAL,
			metrics_json TEXT,
			genome_json TEXT,
			ai_report TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create evolution table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

func (s *SQLiteStore) Append(ctx context.Context, r Record) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO evolution (timestamp, game_mode, win_rate, agent_speed, enemy_speed,
			obstacles_count, time_limit, metrics_json, genome_json, ai_report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Timestamp.Format(time.RFC3339Nano), r.Mode, r.WinRate, r.AgentSpeed, r.EnemySpeed,
		r.ObstaclesCount, r.TimeLimit, r.MetricsJSON, r.GenomeJSON, r.Report)
	if err != nil {
		return 0, fmt.Errorf("failed to append evolution record: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) Recent(ctx context.Context, mode string, limit int) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, timestamp, game_mode, win_rate, agent_speed, enemy_speed,
			obstacles_count, time_limit, metrics_json, genome_json, ai_report
		FROM evolution
		WHERE ? = '' OR game_mode = ?
		ORDER BY id DESC
		LIMIT ?
	`, mode, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evolution records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r  Record
			ts string
		)
		if err := rows.Scan(&r.ID, &ts, &r.Mode, &r.WinRate, &r.AgentSpeed, &r.EnemySpeed,
			&r.ObstaclesCount, &r.TimeLimit, &r.MetricsJSON, &r.GenomeJSON, &r.Report); err != nil {
			return nil, err
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
