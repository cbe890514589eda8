package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphafusion/internal/optimize"
	"alphafusion/pkg/model"
)

func testReport(id string, started time.Time) *optimize.Report {
	results := []model.ParameterResult{
		{ImpactWeight: 0, Ticker: "AAA", SharpeRatio: model.Float(0.4), TotalReturn: 0.02},
		{ImpactWeight: 0, Ticker: "BBB", SharpeRatio: nil, TotalReturn: 0},
		{ImpactWeight: 0.1, Ticker: "AAA", SharpeRatio: model.Float(0.9), TotalReturn: 0.05},
		{ImpactWeight: 0.1, Ticker: "BBB", SharpeRatio: model.Float(1.1), TotalReturn: 0.04},
	}
	return &optimize.Report{
		RunID:      id,
		StartedAt:  started,
		Elapsed:    1500 * time.Millisecond,
		Grid:       []float64{0, 0.1},
		Tickers:    []string{"AAA", "BBB"},
		Results:    results,
		CellsTotal: 4,
		Evaluated:  4,
		Complete:   true,
		Ranking:    optimize.Rank(results, 5),
	}
}

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "sweeps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadSweep(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	started := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSweep(ctx, testReport("run-1", started)))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "2025-01-10T08:00:00Z", r.StartedAt)
	assert.Equal(t, int64(1500), r.ElapsedMS)
	assert.True(t, r.Complete)
	require.NotNil(t, r.BestWeight)
	assert.Equal(t, 0.1, *r.BestWeight)
	assert.InDelta(t, 1.0, *r.BestSharpe, 1e-12)

	curve, err := s.Curve(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, curve, 2)
	assert.Equal(t, 0.0, curve[0].ImpactWeight)
	require.NotNil(t, curve[0].AvgSharpe)
	assert.InDelta(t, 0.4, *curve[0].AvgSharpe, 1e-12)
	assert.Equal(t, 1, curve[0].Tickers)

	best, err := s.TickerBest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []TickerBestRow{
		{Ticker: "AAA", ImpactWeight: 0.1, SharpeRatio: 0.9},
		{Ticker: "BBB", ImpactWeight: 0.1, SharpeRatio: 1.1},
	}, best)
}

func TestSaveSweepWithoutWinner(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	rep := testReport("run-empty", time.Now())
	rep.Ranking = optimize.Rank(nil, 5)
	rep.Complete = false
	require.NoError(t, s.SaveSweep(ctx, rep))

	runs, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].BestWeight)
	assert.Nil(t, runs[0].BestSharpe)
	assert.False(t, runs[0].Complete)
}

func TestDuplicateRunIsRolledBack(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	started := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSweep(ctx, testReport("run-1", started)))
	assert.Error(t, s.SaveSweep(ctx, testReport("run-1", started)))

	curve, err := s.Curve(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, curve, 2)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveSweep(ctx, testReport(id, base.Add(time.Duration(i)*time.Hour))))
	}
	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
}
