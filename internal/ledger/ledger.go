// internal/ledger/ledger.go
//
// Progress ledger: an optional, append-mostly record of runs and stage solves.
// It implements hunt.Recorder and answers aggregate stats for GET /api/stats.
// Session state itself is never read back from here.

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Ledger records hunt progress in SQLite.
type Ledger struct {
	db *sql.DB
}

// Stats summarises recorded progress.
type Stats struct {
	Runs        int          `json:"runs"`
	Completed   int          `json:"completed"`
	StageSolves []int        `json:"stageSolves"` // index = stage
	Fastest     []Completion `json:"fastest"`
}

// Completion is one finished run, without its identifier.
type Completion struct {
	ElapsedMs   int64  `json:"elapsedMs"`
	CompletedAt string `json:"completedAt"`
}

// Open opens dsn and applies migrations.
func Open(dsn string) (*Ledger, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the database.
func (l *Ledger) Close() error { return l.db.Close() }

// RunStarted inserts the run row; repeated calls are ignored.
func (l *Ledger) RunStarted(ctx context.Context, runID string, at time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO runs (run_id, started_at) VALUES (?, ?)`,
		runID, stamp(at))
	return err
}

// StageSolved records that runID solved stage; duplicates are ignored.
func (l *Ledger) StageSolved(ctx context.Context, runID string, stage int, at time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO stage_solves (run_id, stage, solved_at) VALUES (?, ?, ?)`,
		runID, stage, stamp(at))
	return err
}

// RunCompleted marks runID finished. The first completion wins.
func (l *Ledger) RunCompleted(ctx context.Context, runID string, startedAt, at time.Time) error {
	elapsed := at.Sub(startedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	_, err := l.db.ExecContext(ctx, `
        INSERT INTO runs (run_id, started_at, completed_at, elapsed_ms)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(run_id) DO UPDATE SET
            completed_at = COALESCE(runs.completed_at, excluded.completed_at),
            elapsed_ms   = COALESCE(runs.elapsed_ms, excluded.elapsed_ms)`,
		runID, stamp(startedAt), stamp(at), elapsed)
	return err
}

// Stats aggregates runs and per-stage solves for a catalog of total stages.
// limit bounds the fastest-completions list (default 10).
func (l *Ledger) Stats(ctx context.Context, total, limit int) (Stats, error) {
	if limit <= 0 {
		limit = 10
	}
	out := Stats{StageSolves: make([]int, total), Fastest: []Completion{}}

	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COUNT(completed_at) FROM runs`,
	).Scan(&out.Runs, &out.Completed); err != nil {
		return Stats{}, err
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT stage, COUNT(1) FROM stage_solves GROUP BY stage`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var stage, n int
		if err := rows.Scan(&stage, &n); err != nil {
			return Stats{}, err
		}
		if stage >= 0 && stage < total {
			out.StageSolves[stage] = n
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	fast, err := l.db.QueryContext(ctx, `
        SELECT elapsed_ms, completed_at
        FROM runs
        WHERE completed_at IS NOT NULL
        ORDER BY elapsed_ms ASC, completed_at ASC
        LIMIT ?`, limit)
	if err != nil {
		return Stats{}, err
	}
	defer fast.Close()
	for fast.Next() {
		var c Completion
		if err := fast.Scan(&c.ElapsedMs, &c.CompletedAt); err != nil {
			return Stats{}, err
		}
		out.Fastest = append(out.Fastest, c)
	}
	return out, fast.Err()
}

// stamp formats t as RFC3339 (UTC, millisecond precision).
func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
