// Package state keeps the diagnostics journal of split runs in SQLite.
// Each run gets a row in runs; every status event of the run is stored in
// events so past outcomes can be listed with "relsplit history".
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/relsplit/internal/diag"
	"github.com/leapstack-labs/relsplit/pkg/core"
)

// DefaultJournalPath is used when journal.path is not configured.
const DefaultJournalPath = ".relsplit/journal.db"

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var errNotOpen = errors.New("journal not opened")

// Run is one recorded split run.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      string
	Inputs      []string
	DryRun      bool
	Counts      diag.Counts
	Error       string
}

// Journal records runs and their events.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenJournal opens (creating if needed) the journal at path and applies
// pending migrations. Use ":memory:" for an in-memory journal.
func OpenJournal(path string) (*Journal, error) {
	var dsn string
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	j := &Journal{db: db, path: path, now: time.Now}
	if err := j.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// NewJournalWithDB wraps an existing connection. Migrations are not run.
func NewJournalWithDB(db *sql.DB) *Journal {
	return &Journal{db: db, now: time.Now}
}

// Path returns the journal location, empty for wrapped connections.
func (j *Journal) Path() string { return j.path }

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// StartRun creates a running run for the given inputs.
func (j *Journal) StartRun(ctx context.Context, inputs []string, dryRun bool) (*Run, error) {
	if j.db == nil {
		return nil, errNotOpen
	}

	run := &Run{
		ID:        uuid.New().String(),
		StartedAt: j.now().UTC(),
		Status:    RunStatusRunning,
		Inputs:    inputs,
		DryRun:    dryRun,
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status, inputs, dry_run) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeLayout), run.Status, strings.Join(inputs, "\n"), boolInt(dryRun),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// Record stores one event of a run.
func (j *Journal) Record(ctx context.Context, runID string, ev diag.Event) error {
	if j.db == nil {
		return errNotOpen
	}
	at := ev.Time
	if at.IsZero() {
		at = j.now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (run_id, level, input, block, path, message, line, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ev.Level.String(), ev.Input, ev.Block, ev.Path, ev.Message, ev.Line, at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Sink returns a diag.Sink recording events for run.
func (j *Journal) Sink(run *Run) diag.Sink {
	return diag.SinkFunc(func(ctx context.Context, ev diag.Event) error {
		return j.Record(ctx, run.ID, ev)
	})
}

// FinishRun stores the final counts. A non-nil runErr marks the run failed.
func (j *Journal) FinishRun(ctx context.Context, run *Run, counts diag.Counts, runErr error) error {
	if j.db == nil {
		return errNotOpen
	}

	done := j.now().UTC()
	run.CompletedAt = &done
	run.Counts = counts
	run.Status = RunStatusCompleted
	var errMsg sql.NullString
	if runErr != nil {
		run.Status = RunStatusFailed
		run.Error = runErr.Error()
		errMsg = sql.NullString{String: run.Error, Valid: true}
	}

	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET completed_at = ?, status = ?, successes = ?, warnings = ?, errors = ?, error = ? WHERE id = ?`,
		done.Format(timeLayout), run.Status, counts.Success, counts.Warning, counts.Error, errMsg, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if j.db == nil {
		return nil, errNotOpen
	}

	query := `SELECT id, started_at, completed_at, status, inputs, dry_run, successes, warnings, errors, error
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		var (
			r         Run
			started   string
			completed sql.NullString
			inputs    string
			dryRun    int
			errMsg    sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &completed, &r.Status, &inputs, &dryRun,
			&r.Counts.Success, &r.Counts.Warning, &r.Counts.Error, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", r.ID, err)
		}
		if completed.Valid {
			t, err := time.Parse(timeLayout, completed.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: bad completed_at: %w", r.ID, err)
			}
			r.CompletedAt = &t
		}
		if inputs != "" {
			r.Inputs = strings.Split(inputs, "\n")
		}
		r.DryRun = dryRun != 0
		r.Error = errMsg.String
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Events returns the events of a run in insertion order.
func (j *Journal) Events(ctx context.Context, runID string) ([]diag.Event, error) {
	if j.db == nil {
		return nil, errNotOpen
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT level, input, block, path, message, line, created_at FROM events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []diag.Event
	for rows.Next() {
		var (
			ev      diag.Event
			level   string
			created string
		)
		if err := rows.Scan(&level, &ev.Input, &ev.Block, &ev.Path, &ev.Message, &ev.Line, &created); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Level, _ = core.ParseStatus(level)
		if ev.Time, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("bad event time: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
