// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps an append-only history of harvest runs in SQLite.
// It is a report of what happened; nothing reads it back to resume work.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is an open run history database.
type Store struct {
	db *sql.DB
}

// Run is one row of the run history.
type Run struct {
	ID         string
	Topic      string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
	Duplicates int
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
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
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			duplicates INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			work_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			source TEXT,
			url TEXT,
			path TEXT,
			bytes INTEGER,
			status_code INTEGER,
			detail TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_work_id ON results(work_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and all of its results in one transaction.
func (s *Store) Record(ctx context.Context, sum types.RunSummary) error {
	if sum.RunID == "" {
		return fmt.Errorf("recording run: missing run id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, topic, started_at, finished_at, total, succeeded, failed, duplicates)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Topic,
		sum.StartedAt.UTC().Format(timeLayout), sum.FinishedAt.UTC().Format(timeLayout),
		sum.Total, sum.Succeeded, sum.Failed, sum.Duplicates,
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", sum.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, position, work_id, outcome, source, url, path, bytes, status_code, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range sum.Results {
		if _, err := stmt.ExecContext(ctx,
			sum.RunID, i, r.WorkID, string(r.Outcome), string(r.Source),
			r.URL, r.Path, r.Bytes, r.StatusCode, r.Detail,
		); err != nil {
			return fmt.Errorf("inserting result for %s: %w", r.WorkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", sum.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, started_at, finished_at, total, succeeded, failed, duplicates
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Topic, &started, &finished, &r.Total, &r.Succeeded, &r.Failed, &r.Duplicates); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("scanning run %s: started_at: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("scanning run %s: finished_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Results returns the stored results of one run in input order.
func (s *Store) Results(ctx context.Context, runID string) ([]types.DownloadResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT work_id, outcome, source, url, path, bytes, status_code, detail
		 FROM results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []types.DownloadResult
	for rows.Next() {
		var r types.DownloadResult
		var outcome, source string
		if err := rows.Scan(&r.WorkID, &outcome, &source, &r.URL, &r.Path, &r.Bytes, &r.StatusCode, &r.Detail); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.Outcome = types.Outcome(outcome)
		r.Source = types.ResolutionSource(source)
		results = append(results, r)
	}
	return results, rows.Err()
}
