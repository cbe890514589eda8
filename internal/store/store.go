// Package store persists sweep ranking summaries to SQLite.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"alphafusion/internal/optimize"
)

const schema = `
CREATE TABLE IF NOT EXISTS sweep_runs (
	run_id          TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	elapsed_ms      INTEGER NOT NULL,
	tickers         INTEGER NOT NULL,
	cells_total     INTEGER NOT NULL,
	cells_evaluated INTEGER NOT NULL,
	complete        INTEGER NOT NULL,
	best_weight     REAL,
	best_sharpe     REAL
);
CREATE TABLE IF NOT EXISTS sweep_curve (
	run_id        TEXT NOT NULL REFERENCES sweep_runs(run_id) ON DELETE CASCADE,
	impact_weight REAL NOT NULL,
	avg_sharpe    REAL,
	avg_return    REAL NOT NULL,
	tickers       INTEGER NOT NULL,
	PRIMARY KEY (run_id, impact_weight)
);
CREATE TABLE IF NOT EXISTS sweep_ticker_best (
	run_id        TEXT NOT NULL REFERENCES sweep_runs(run_id) ON DELETE CASCADE,
	ticker        TEXT NOT NULL,
	impact_weight REAL NOT NULL,
	sharpe_ratio  REAL NOT NULL,
	PRIMARY KEY (run_id, ticker)
);`

// Run is one row of sweep_runs
type Run struct {
	RunID          string   `db:"run_id" json:"run_id"`
	StartedAt      string   `db:"started_at" json:"started_at"`
	ElapsedMS      int64    `db:"elapsed_ms" json:"elapsed_ms"`
	Tickers        int      `db:"tickers" json:"tickers"`
	CellsTotal     int      `db:"cells_total" json:"cells_total"`
	CellsEvaluated int      `db:"cells_evaluated" json:"cells_evaluated"`
	Complete       bool     `db:"complete" json:"complete"`
	BestWeight     *float64 `db:"best_weight" json:"best_weight"`
	BestSharpe     *float64 `db:"best_sharpe" json:"best_sharpe"`
}

// CurveRow is one row of sweep_curve
type CurveRow struct {
	ImpactWeight float64  `db:"impact_weight"`
	AvgSharpe    *float64 `db:"avg_sharpe"`
	AvgReturn    float64  `db:"avg_return"`
	Tickers      int      `db:"tickers"`
}

// TickerBestRow is one row of sweep_ticker_best
type TickerBestRow struct {
	Ticker       string  `db:"ticker"`
	ImpactWeight float64 `db:"impact_weight"`
	SharpeRatio  float64 `db:"sharpe_ratio"`
}

// Store wraps the sweep database
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open opens or creates the database at path and applies the schema
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("ensure dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// one writer keeps sqlite free of lock contention
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db, timeout: 10 * time.Second}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSweep stores the ranking summary of a report atomically.
// Individual cells are not persisted.
func (s *Store) SaveSweep(ctx context.Context, r *optimize.Report) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	run := Run{
		RunID:          r.RunID,
		StartedAt:      r.StartedAt.UTC().Format(time.RFC3339),
		ElapsedMS:      r.Elapsed.Milliseconds(),
		Tickers:        len(r.Tickers),
		CellsTotal:     r.CellsTotal,
		CellsEvaluated: r.Evaluated,
		Complete:       r.Complete,
	}
	if r.Best != nil {
		run.BestWeight = &r.Best.ImpactWeight
		run.BestSharpe = r.Best.AvgSharpe
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO sweep_runs (run_id, started_at, elapsed_ms, tickers, cells_total, cells_evaluated, complete, best_weight, best_sharpe)
		VALUES (:run_id, :started_at, :elapsed_ms, :tickers, :cells_total, :cells_evaluated, :complete, :best_weight, :best_sharpe)`, run)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, pt := range r.Curve {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sweep_curve (run_id, impact_weight, avg_sharpe, avg_return, tickers) VALUES (?, ?, ?, ?, ?)`,
			r.RunID, pt.ImpactWeight, pt.AvgSharpe, pt.AvgReturn, pt.Tickers)
		if err != nil {
			return fmt.Errorf("failed to insert curve point: %w", err)
		}
	}

	for _, tb := range r.PerTicker {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sweep_ticker_best (run_id, ticker, impact_weight, sharpe_ratio) VALUES (?, ?, ?, ?)`,
			r.RunID, tb.Ticker, tb.ImpactWeight, tb.SharpeRatio)
		if err != nil {
			return fmt.Errorf("failed to insert ticker best: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var runs []Run
	err := s.db.SelectContext(ctx, &runs, `
		SELECT run_id, started_at, elapsed_ms, tickers, cells_total, cells_evaluated, complete, best_weight, best_sharpe
		FROM sweep_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Curve returns the stored curve of a run by ascending weight
func (s *Store) Curve(ctx context.Context, runID string) ([]CurveRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []CurveRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT impact_weight, avg_sharpe, avg_return, tickers
		FROM sweep_curve WHERE run_id = ? ORDER BY impact_weight`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load curve: %w", err)
	}
	return rows, nil
}

// TickerBest returns the per-ticker winners of a run
func (s *Store) TickerBest(ctx context.Context, runID string) ([]TickerBestRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []TickerBestRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT ticker, impact_weight, sharpe_ratio
		FROM sweep_ticker_best WHERE run_id = ? ORDER BY ticker`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticker best: %w", err)
	}
	return rows, nil
}
