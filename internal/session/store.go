// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session persists compile-session history in a SQLite database so
// repeated failures can be diagnosed after the fact: which attempts ran,
// what the compiler said, and which packages were installed along the way.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/writeup-engine/pkg/types"
)

// Store manages the session history SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the history database at cfg.DBPath, creating
// parent directories and the schema as needed.
func NewStore(cfg types.SessionConfig) (*Store, error) {
	cfg = cfg.WithDefaults()

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, maxResults: cfg.MaxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tex_path TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			success INTEGER NOT NULL,
			fixes INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attempts (
			session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			number INTEGER NOT NULL,
			exit_code INTEGER NOT NULL,
			timed_out INTEGER NOT NULL,
			log_tail TEXT,
			missing TEXT,
			installed TEXT,
			PRIMARY KEY (session_id, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordSession inserts rec and its attempts in one transaction and
// returns the assigned session id.
func (s *Store) RecordSession(ctx context.Context, rec types.SessionRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (tex_path, started_at, duration_ms, success, fixes)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.TexPath,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Duration.Milliseconds(),
		rec.Success,
		rec.Fixes,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading session id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attempts (session_id, number, exit_code, timed_out, log_tail, missing, installed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing attempt insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range rec.Attempts {
		missingJSON, _ := json.Marshal(a.Missing)
		installedJSON, _ := json.Marshal(a.Installed)
		if _, err := stmt.ExecContext(ctx,
			id, a.Number, a.ExitCode, a.TimedOut, a.LogTail,
			string(missingJSON), string(installedJSON),
		); err != nil {
			return 0, fmt.Errorf("inserting attempt %d: %w", a.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing session: %w", err)
	}
	return id, nil
}

// ListSessions returns the most recent sessions, newest first, with their
// attempts loaded. The result size is bounded by the configured maximum.
func (s *Store) ListSessions(ctx context.Context) ([]types.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tex_path, started_at, duration_ms, success, fixes
		 FROM sessions ORDER BY id DESC LIMIT ?`, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var records []types.SessionRecord
	for rows.Next() {
		var (
			rec        types.SessionRecord
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.TexPath, &startedAt, &durationMS, &rec.Success, &rec.Fixes); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			rec.StartedAt = t
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	for i := range records {
		attempts, err := s.loadAttempts(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Attempts = attempts
	}
	return records, nil
}

func (s *Store) loadAttempts(ctx context.Context, sessionID int64) ([]types.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, exit_code, timed_out, log_tail, missing, installed
		 FROM attempts WHERE session_id = ? ORDER BY number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var attempts []types.Attempt
	for rows.Next() {
		var (
			a                  types.Attempt
			missing, installed string
		)
		if err := rows.Scan(&a.Number, &a.ExitCode, &a.TimedOut, &a.LogTail, &missing, &installed); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		json.Unmarshal([]byte(missing), &a.Missing)
		json.Unmarshal([]byte(installed), &a.Installed)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
