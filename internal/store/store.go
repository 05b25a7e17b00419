package store

// Package store keeps a history of expiration runs in SQLite.
// The daemon records every scheduled or triggered run here so `fsx history`
// can show what was freed and when, across restarts.

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run represents a row in the 'runs' table.
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	Mode            string
	Bytes           int64
	Policy          string
	DryRun          bool
	Dirs            []string
	DiscoveredFiles int64
	DiscoveredBytes int64
	FreedFiles      int64
	FreedBytes      int64
	VanishedFiles   int64
	Error           string // empty when the run succeeded
}

// Store wraps the SQL database connection.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One writer at a time; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		mode TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		policy TEXT NOT NULL,
		dry_run INTEGER NOT NULL,
		dirs TEXT NOT NULL,
		discovered_files INTEGER NOT NULL,
		discovered_bytes INTEGER NOT NULL,
		freed_files INTEGER NOT NULL,
		freed_bytes INTEGER NOT NULL,
		vanished_files INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// RecordRun inserts r, assigning it a fresh ID when it has none.
// It returns the stored ID.
func (s *Store) RecordRun(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	query := `
	INSERT INTO runs (id, started_at, finished_at, mode, bytes, policy, dry_run, dirs,
		discovered_files, discovered_bytes, freed_files, freed_bytes, vanished_files, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := s.db.Exec(query,
		r.ID, r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(), r.Mode, r.Bytes, r.Policy, r.DryRun,
		strings.Join(r.Dirs, "\n"),
		r.DiscoveredFiles, r.DiscoveredBytes, r.FreedFiles, r.FreedBytes, r.VanishedFiles, r.Error)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	query := `
	SELECT id, started_at, finished_at, mode, bytes, policy, dry_run, dirs,
		discovered_files, discovered_bytes, freed_files, freed_bytes, vanished_files, error
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
			dirs              string
		)
		err := rows.Scan(&r.ID, &started, &finished, &r.Mode, &r.Bytes, &r.Policy, &r.DryRun, &dirs,
			&r.DiscoveredFiles, &r.DiscoveredBytes, &r.FreedFiles, &r.FreedBytes, &r.VanishedFiles, &r.Error)
		if err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started)
		r.FinishedAt = time.Unix(0, finished)
		if dirs != "" {
			r.Dirs = strings.Split(dirs, "\n")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// TotalFreed returns the bytes freed by all successful, non-dry runs.
func (s *Store) TotalFreed() (int64, error) {
	query := `SELECT COALESCE(SUM(freed_bytes), 0) FROM runs WHERE dry_run = 0 AND error = ''`
	var size int64
	err := s.db.QueryRow(query).Scan(&size)
	return size, err
}
