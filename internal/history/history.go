// Package history keeps a SQLite ledger of relay runs and the best-effort
// actions each run attempted.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/domain"

	_ "modernc.org/sqlite"
)

// Ledger records run reports. It implements relay.RunRecorder.
type Ledger struct {
	db *sql.DB
}

// Run is a stored run summary.
type Run struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Cyclones     int
	Updated      []string
	Tracked      []string
	DigestPosted bool
	Failures     int
	Error        string
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db}
	if err := l.init(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) init() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id        TEXT PRIMARY KEY,
			started_at    TEXT NOT NULL,
			finished_at   TEXT NOT NULL,
			cyclones      INTEGER NOT NULL,
			updated       TEXT NOT NULL DEFAULT '',
			tracked       TEXT NOT NULL DEFAULT '',
			digest_posted INTEGER NOT NULL DEFAULT 0,
			error         TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS actions (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			seq    INTEGER NOT NULL,
			action TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, seq)
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing history schema: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun stores a run report and its actions in one transaction.
func (l *Ledger) RecordRun(ctx context.Context, report domain.RunReport) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, cyclones, updated, tracked, digest_posted, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, report.RunID,
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
		report.Cyclones,
		strings.Join(report.Updated, ","),
		strings.Join(report.Tracked, ","),
		report.DigestPosted,
		report.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", report.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO actions (run_id, seq, action, target, status, reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, a := range report.Actions {
		if _, err := stmt.ExecContext(ctx, report.RunID, i, a.Action, a.Target, string(a.Status), a.Reason); err != nil {
			return fmt.Errorf("inserting action %d of run %s: %w", i, report.RunID, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to n runs, newest first.
func (l *Ledger) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT r.run_id, r.started_at, r.finished_at, r.cyclones, r.updated, r.tracked,
		       r.digest_posted, r.error,
		       (SELECT COUNT(*) FROM actions a WHERE a.run_id = r.run_id AND a.status = ?)
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?
	`, string(domain.ActionFailed), n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			updated, tracked  string
		)
		if err := rows.Scan(&r.RunID, &started, &finished, &r.Cyclones, &updated, &tracked,
			&r.DigestPosted, &r.Error, &r.Failures); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing started_at of run %s: %w", r.RunID, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at of run %s: %w", r.RunID, err)
		}
		r.Updated = splitIDs(updated)
		r.Tracked = splitIDs(tracked)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Actions returns the recorded actions of one run in order.
func (l *Ledger) Actions(ctx context.Context, runID string) ([]domain.ActionResult, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT action, target, status, reason FROM actions WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.ActionResult
	for rows.Next() {
		var (
			a      domain.ActionResult
			status string
		)
		if err := rows.Scan(&a.Action, &a.Target, &status, &a.Reason); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		a.Status = domain.ActionStatus(status)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Timestamps are stored as fixed-width UTC text so lexical order matches
// chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
