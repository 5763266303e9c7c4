// Package history persists conversion sessions in a local SQLite database.
// Recording is best-effort: callers warn on store errors and never let them
// fail a batch.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Session is one recorded batch run.
type Session struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Preset     string
	OutDir     string
	Converted  int
	Failed     int
}

// Job is one recorded conversion within a session.
type Job struct {
	SessionID string
	Input     string
	Output    string
	Bytes     int64
	Elapsed   time.Duration
	Status    string // "converted" or "failed"
	Error     string
	CreatedAt time.Time
}

// Open initializes or connects to the history database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, insErr := s.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); insErr != nil {
			return fmt.Errorf("record schema version: %w", insErr)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("history db %s has schema version %d, expected %d", s.path, version, schemaVersion)
	}
	return nil
}

// BeginSession records the start of a batch run.
func (s *Store) BeginSession(ctx context.Context, id, preset, outDir string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, preset, out_dir) VALUES (?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), preset, outDir,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FinishSession records the batch outcome.
func (s *Store) FinishSession(ctx context.Context, id string, converted, failed int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET finished_at = ?, converted = ?, failed = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), converted, failed, id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

// RecordJob appends one job outcome to its session.
func (s *Store) RecordJob(ctx context.Context, j Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (session_id, input, output, bytes, elapsed_ms, status, error, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.SessionID, j.Input, nullable(j.Output), j.Bytes, j.Elapsed.Milliseconds(),
		j.Status, nullable(j.Error), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, ''), preset, out_dir, converted, failed
         FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var started, finished string
		if err := rows.Scan(&sess.ID, &started, &finished, &sess.Preset, &sess.OutDir, &sess.Converted, &sess.Failed); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = parseTime(started)
		sess.FinishedAt = parseTime(finished)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// JobsForSession returns the jobs of one session in insertion order.
func (s *Store) JobsForSession(ctx context.Context, sessionID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, input, COALESCE(output, ''), bytes, elapsed_ms, status, COALESCE(error, ''), created_at
         FROM jobs WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		var elapsedMs int64
		var created string
		if err := rows.Scan(&j.SessionID, &j.Input, &j.Output, &j.Bytes, &elapsedMs, &j.Status, &j.Error, &created); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		j.CreatedAt = parseTime(created)
		out = append(out, j)
	}
	return out, rows.Err()
}

// Clear wipes all recorded sessions and jobs.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
