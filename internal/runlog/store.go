// Package runlog keeps a SQLite-backed history of batch runs: when each run
// started and finished, what it was configured with, and how it ended. The
// JSON ledger answers "was this file done"; the run log answers "what did
// run X do".
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store manages run-history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    input_dir TEXT NOT NULL,
    model TEXT NOT NULL,
    language TEXT NOT NULL,
    workers INTEGER NOT NULL,
    discovered INTEGER NOT NULL DEFAULT 0,
    successful INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    media_duration REAL NOT NULL DEFAULT 0,
    processing_time REAL NOT NULL DEFAULT 0,
    interrupted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Open initializes or connects to the run-history database under logDir.
func Open(logDir string) (*Store, error) {
	dbPath := filepath.Join(logDir, "runs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path reports the database file location.
func (s *Store) Path() string { return s.path }

// Run is one recorded batch run.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	InputDir       string
	Model          string
	Language       string
	Workers        int
	Discovered     int
	Successful     int
	Failed         int
	Skipped        int
	MediaDuration  float64
	ProcessingTime float64
	Interrupted    bool
}

// StartRun records the beginning of a batch run and returns its ID.
func (s *Store) StartRun(ctx context.Context, inputDir, model, lang string, workers int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input_dir, model, language, workers)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		time.Now().UTC().Format(time.RFC3339Nano),
		inputDir,
		model,
		lang,
		workers,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Summary carries the final counters for FinishRun.
type Summary struct {
	Discovered     int
	Successful     int
	Failed         int
	Skipped        int
	MediaDuration  float64
	ProcessingTime float64
	Interrupted    bool
}

// FinishRun stamps the end of a run with its final counters.
func (s *Store) FinishRun(ctx context.Context, id string, sum Summary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, discovered = ?, successful = ?, failed = ?,
         skipped = ?, media_duration = ?, processing_time = ?, interrupted = ?
         WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		sum.Discovered,
		sum.Successful,
		sum.Failed,
		sum.Skipped,
		sum.MediaDuration,
		sum.ProcessingTime,
		boolToInt(sum.Interrupted),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("finish run %s: unknown run", id)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, input_dir, model, language, workers,
         discovered, successful, failed, skipped, media_duration, processing_time, interrupted
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			started     string
			finished    sql.NullString
			interrupted int
		)
		if err := rows.Scan(
			&run.ID, &started, &finished, &run.InputDir, &run.Model, &run.Language,
			&run.Workers, &run.Discovered, &run.Successful, &run.Failed, &run.Skipped,
			&run.MediaDuration, &run.ProcessingTime, &interrupted,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished.Valid {
			run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
		}
		run.Interrupted = interrupted != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
