package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"alphafusion/internal/metrics"
	"alphafusion/pkg/model"
)

// BatchResult holds one parameterization replayed over every ticker
type BatchResult struct {
	Strategy        string             `json:"strategy"`
	ImpactWeight    float64            `json:"impact_weight"`
	Results         map[string]*Result `json:"results"`
	Skipped         []string           `json:"skipped,omitempty"`
	MeanTotalReturn float64            `json:"mean_total_return"`
	MeanWinRate     *float64           `json:"mean_win_rate"`
	MeanSharpe      *float64           `json:"mean_sharpe"`
}

// Tickers returns the simulated tickers in sorted order
func (b *BatchResult) Tickers() []string {
	out := make([]string, 0, len(b.Results))
	for t := range b.Results {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Comparison is one row of the hybrid vs technical-only report
type Comparison struct {
	Ticker       string  `json:"ticker"`
	HybridReturn float64 `json:"hybrid_return"`
	TechReturn   float64 `json:"tech_return"`
	Difference   float64 `json:"difference"`
	HybridTrades int     `json:"hybrid_trades"`
}

// ProgressCallback reports per-ticker progress
type ProgressCallback func(done, total int, ticker string)

// BatchRunner replays the strategy chain over a set of prepared tickers
type BatchRunner struct {
	sim *Simulator
	log zerolog.Logger
}

// NewBatchRunner creates a new batch runner
func NewBatchRunner(sim *Simulator, log zerolog.Logger) *BatchRunner {
	return &BatchRunner{sim: sim, log: log.With().Str("stage", "backtest").Logger()}
}

// Run executes the batch
func (br *BatchRunner) Run(ctx context.Context, prepared map[string][]model.AlphaRecord, strategy string, impactWeight float64) (*BatchResult, error) {
	return br.RunWithProgress(ctx, prepared, strategy, impactWeight, nil)
}

// RunWithProgress executes the batch with a progress callback.
// A failing ticker is logged and skipped; only cancellation aborts.
func (br *BatchRunner) RunWithProgress(ctx context.Context, prepared map[string][]model.AlphaRecord, strategy string, impactWeight float64, progress ProgressCallback) (*BatchResult, error) {
	start := time.Now()
	defer metrics.ObserveStage("backtest", start)

	tickers := make([]string, 0, len(prepared))
	for t := range prepared {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	batch := &BatchResult{
		Strategy:     strategy,
		ImpactWeight: impactWeight,
		Results:      make(map[string]*Result, len(tickers)),
	}

	for i, ticker := range tickers {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		res, err := br.runTicker(prepared[ticker], impactWeight)
		if err != nil {
			reason := "error"
			if errors.Is(err, model.ErrNoData) {
				reason = "no_data"
			}
			br.log.Warn().Err(err).Str("ticker", ticker).Str("strategy", strategy).Msg("Ticker has no result")
			metrics.TickersSkipped.WithLabelValues("backtest", reason).Inc()
			batch.Skipped = append(batch.Skipped, ticker)
		} else {
			batch.Results[ticker] = res
		}

		if progress != nil {
			progress(i+1, len(tickers), ticker)
		}
	}

	batch.summarize()
	return batch, nil
}

func (br *BatchRunner) runTicker(base []model.AlphaRecord, impactWeight float64) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return br.sim.Chain(base, impactWeight)
}

// summarize averages metrics across tickers, skipping undefined values
func (b *BatchResult) summarize() {
	var returns, winRates, sharpes []float64
	for _, r := range b.Results {
		returns = append(returns, r.TotalReturn)
		if r.WinRate != nil {
			winRates = append(winRates, *r.WinRate)
		}
		if r.SharpeRatio != nil {
			sharpes = append(sharpes, *r.SharpeRatio)
		}
	}
	b.MeanTotalReturn = average(returns)
	if len(winRates) > 0 {
		b.MeanWinRate = model.Float(average(winRates))
	}
	if len(sharpes) > 0 {
		b.MeanSharpe = model.Float(average(sharpes))
	}
}

// Compare lines up the hybrid and technical-only batches per ticker
func Compare(hybrid, tech *BatchResult) []Comparison {
	var rows []Comparison
	for _, t := range hybrid.Tickers() {
		h := hybrid.Results[t]
		row := Comparison{Ticker: t, HybridReturn: h.TotalReturn, HybridTrades: h.TradeCount}
		if tr, ok := tech.Results[t]; ok {
			row.TechReturn = tr.TotalReturn
		}
		row.Difference = row.HybridReturn - row.TechReturn
		rows = append(rows, row)
	}
	return rows
}
