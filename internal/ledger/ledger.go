// Package ledger records batch run outcomes in a SQLite file.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/simonhull/audiounlock"
)

// ErrUnknownRun is returned for run ids the ledger never issued.
var ErrUnknownRun = errors.New("unknown run")

// Run is one batch invocation.
type Run struct {
	StartedAt  time.Time
	FinishedAt time.Time
	ID         string
	Workers    int
	Finished   int
	Failed     int
}

// Entry is the recorded outcome of one task.
type Entry struct {
	FinishedAt time.Time
	RunID      string
	TaskID     string
	Input      string
	Output     string
	State      string
	Kind       string
	Error      string
}

// Ledger is a SQLite-backed run history. It is safe for concurrent use.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		workers INTEGER NOT NULL,
		finished INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		input TEXT NOT NULL,
		output TEXT,
		state TEXT NOT NULL CHECK (state IN ('finished','error')),
		kind TEXT,
		error TEXT,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_run_seq ON tasks(run_id, seq);
	`
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// StartRun inserts a new run and returns its id.
func (l *Ledger) StartRun(ctx context.Context, workers int) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, workers) VALUES (?, ?, ?)`,
		id, time.Now().UnixMilli(), workers)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counts of a run.
func (l *Ledger) FinishRun(ctx context.Context, runID string, finished, failed int) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, finished = ?, failed = ? WHERE id = ?`,
		time.Now().UnixMilli(), finished, failed, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}

// Record appends one task outcome to a run.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	finishedAt := e.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO tasks (task_id, run_id, seq, input, output, state, kind, error, finished_at)
		VALUES (?, ?, (SELECT COUNT(*) FROM tasks WHERE run_id = ?), ?, ?, ?, ?, ?, ?)`,
		e.TaskID, e.RunID, e.RunID, e.Input, nullString(e.Output), e.State,
		nullString(e.Kind), nullString(e.Error), finishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record task %s: %w", e.TaskID, err)
	}
	return nil
}

// Run returns one run by id.
func (l *Ledger) Run(ctx context.Context, runID string) (Run, error) {
	var (
		r          Run
		startedAt  int64
		finishedAt sql.NullInt64
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, workers, finished, failed FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &startedAt, &finishedAt, &r.Workers, &r.Finished, &r.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	r.StartedAt = time.UnixMilli(startedAt)
	if finishedAt.Valid {
		r.FinishedAt = time.UnixMilli(finishedAt.Int64)
	}
	return r, nil
}

// Runs returns every run, newest first.
func (l *Ledger) Runs(ctx context.Context) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]Run, 0, len(ids))
	for _, id := range ids {
		r, err := l.Run(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// Entries returns the outcomes recorded for a run, in recording order.
func (l *Ledger) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT task_id, input, output, state, kind, error, finished_at
		FROM tasks WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                   Entry
			output, kind, cause sql.NullString
			finishedAt          int64
		)
		if err := rows.Scan(&e.TaskID, &e.Input, &output, &e.State, &kind, &cause, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.RunID = runID
		e.Output = output.String
		e.Kind = kind.String
		e.Error = cause.String
		e.FinishedAt = time.UnixMilli(finishedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Reporter returns an audiounlock.Reporter that records every terminal
// task under runID. Write failures are logged; they never fail the run.
func (l *Ledger) Reporter(ctx context.Context, runID string, logger *slog.Logger) audiounlock.Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return audiounlock.ReporterFunc(func(t audiounlock.Task) {
		if err := l.Record(ctx, EntryFor(runID, t)); err != nil {
			logger.Error("cannot record task in ledger", "run_id", runID, "task_id", t.ID, "error", err)
		}
	})
}

// EntryFor converts a terminal task to a ledger entry.
func EntryFor(runID string, t audiounlock.Task) Entry {
	e := Entry{
		FinishedAt: t.FinishedAt,
		RunID:      runID,
		TaskID:     t.ID.String(),
		Input:      t.Name,
		State:      t.State.String(),
		Error:      t.Message(),
	}
	if t.Result != nil {
		e.Output = t.Result.Path
		if e.Output == "" {
			e.Output = t.Result.Name
		}
	}
	if t.Err != nil {
		if k := audiounlock.KindOf(t.Err); k != 0 {
			e.Kind = k.String()
		}
	}
	return e
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
