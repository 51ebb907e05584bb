// Package history persists build run outcomes in a local SQLite database.
package history

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

// ErrNotFound indicates no run exists with the requested id.
var ErrNotFound = errors.New("run not found")

// RunRecord is one build run as stored in the runs table.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Reason     string
	Changed    int
	Resolved   int
	Built      int
	Failed     int
	Warnings   int
}

// RootRecord is the per-root outcome within a run.
type RootRecord struct {
	RunID    string
	Root     string
	Status   string
	Duration time.Duration
	Artifact string
	Error    string
}

// Store wraps the SQLite database holding run history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the history database at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create history directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL,
		changed INTEGER NOT NULL,
		resolved INTEGER NOT NULL,
		built INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		warnings INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS run_roots (
		run_id TEXT NOT NULL,
		root TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		artifact TEXT NOT NULL,
		error TEXT NOT NULL,
		PRIMARY KEY (run_id, root)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_run_roots_run_id ON run_roots(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a completed run together with its per-root outcomes.
func (s *Store) Record(ctx context.Context, run RunRecord, roots []RootRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, finished_at, status, reason, changed, resolved, built, failed, warnings) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Status, run.Reason,
		run.Changed, run.Resolved, run.Built, run.Failed, run.Warnings,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, r := range roots {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO run_roots (run_id, root, status, duration_ms, artifact, error) VALUES (?, ?, ?, ?, ?, ?)",
			run.ID, r.Root, r.Status, r.Duration.Milliseconds(), r.Artifact, r.Error,
		)
		if err != nil {
			return fmt.Errorf("insert root %s: %w", r.Root, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, finished_at, status, reason, changed, resolved, built, failed, warnings FROM runs ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Run returns a single run by id.
func (s *Store) Run(ctx context.Context, id string) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, status, reason, changed, resolved, built, failed, warnings FROM runs WHERE id = ?",
		id,
	)

	var r RunRecord
	var started, finished int64
	err := row.Scan(&r.ID, &started, &finished, &r.Status, &r.Reason, &r.Changed, &r.Resolved, &r.Built, &r.Failed, &r.Warnings)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)
	return r, nil
}

// Roots returns the per-root outcomes of a run, ordered by root identity.
func (s *Store) Roots(ctx context.Context, runID string) ([]RootRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, root, status, duration_ms, artifact, error FROM run_roots WHERE run_id = ? ORDER BY root",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	defer rows.Close()

	var roots []RootRecord
	for rows.Next() {
		var r RootRecord
		var durationMS int64
		if err := rows.Scan(&r.RunID, &r.Root, &r.Status, &durationMS, &r.Artifact, &r.Error); err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		roots = append(roots, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return roots, nil
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished int64
		err := rows.Scan(&r.ID, &started, &finished, &r.Status, &r.Reason, &r.Changed, &r.Resolved, &r.Built, &r.Failed, &r.Warnings)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
