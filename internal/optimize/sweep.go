package optimize

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"alphafusion/internal/backtest"
	"alphafusion/internal/config"
	"alphafusion/internal/logging"
	"alphafusion/internal/metrics"
	"alphafusion/pkg/model"
)

// ProgressCallback is called after every evaluated cell
type ProgressCallback func(done, total int)

// Report is the outcome of one sweep run
type Report struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	Elapsed    time.Duration           `json:"elapsed"`
	Grid       []float64               `json:"grid"`
	Tickers    []string                `json:"tickers"`
	Results    []model.ParameterResult `json:"-"`                // matrix cells stay in memory
	Failed     map[string]int          `json:"failed,omitempty"` // ticker -> cells without a result
	CellsTotal int                     `json:"cells_total"`
	Evaluated  int                     `json:"cells_evaluated"`
	Complete   bool                    `json:"complete"`
	Ranking
}

// Optimizer runs the fusion -> signal -> simulation chain over a weight grid
type Optimizer struct {
	sim          *backtest.Simulator
	config       config.OptimizeConfig
	log          zerolog.Logger
	throttle     *logging.Throttle
	progressFunc ProgressCallback
}

// NewOptimizer creates a new optimizer
func NewOptimizer(sim *backtest.Simulator, cfg config.OptimizeConfig, log zerolog.Logger) *Optimizer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Optimizer{
		sim:      sim,
		config:   cfg,
		log:      log.With().Str("stage", "optimize").Logger(),
		throttle: logging.NewThrottle(time.Minute, 1),
	}
}

// SetProgressCallback sets the progress callback function
func (o *Optimizer) SetProgressCallback(fn ProgressCallback) {
	o.progressFunc = fn
}

type cell struct {
	weight float64
	ticker string
}

// Run sweeps every (weight, ticker) cell. prepared comes from alpha.Prepare and
// is shared read-only by the workers. On cancellation the cells finished so far
// are ranked and returned together with the context error.
func (o *Optimizer) Run(ctx context.Context, prepared map[string][]model.AlphaRecord) (*Report, error) {
	startTime := time.Now()
	defer metrics.ObserveStage("optimize", startTime)

	grid := NewGrid(o.config.Start, o.config.Stop, o.config.Step)
	if len(grid) == 0 {
		return nil, &model.ConfigurationError{Stage: "optimize", Err: errors.New("empty impact weight grid")}
	}

	tickers := make([]string, 0, len(prepared))
	for t := range prepared {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	cells := make([]cell, 0, len(grid)*len(tickers))
	for _, w := range grid {
		for _, t := range tickers {
			cells = append(cells, cell{weight: w, ticker: t})
		}
	}

	report := &Report{
		RunID:      uuid.NewString(),
		StartedAt:  startTime.UTC(),
		Grid:       grid,
		Tickers:    tickers,
		Failed:     make(map[string]int),
		CellsTotal: len(cells),
	}

	// Channels
	jobChan := make(chan int, len(cells))
	for i := range cells {
		jobChan <- i
	}
	close(jobChan)

	results := make([]*model.ParameterResult, len(cells))
	done := make([]bool, len(cells))
	var evaluated int64

	var wg sync.WaitGroup
	for i := 0; i < o.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				c := cells[idx]
				res, err := o.evaluate(prepared[c.ticker], c.weight)
				if err != nil {
					o.reportFailure(c, err)
				} else {
					metrics.SweepCells.WithLabelValues("ok").Inc()
					results[idx] = res
				}
				done[idx] = true

				count := atomic.AddInt64(&evaluated, 1)
				if o.progressFunc != nil {
					o.progressFunc(int(count), len(cells))
				}
			}
		}()
	}
	wg.Wait()

	for i, r := range results {
		if !done[i] {
			continue
		}
		report.Evaluated++
		if r == nil {
			report.Failed[cells[i].ticker]++
			continue
		}
		report.Results = append(report.Results, *r)
	}
	SortResults(report.Results)
	report.Ranking = Rank(report.Results, o.config.TopN)
	report.Complete = report.Evaluated == report.CellsTotal
	report.Elapsed = time.Since(startTime)

	for t, n := range report.Failed {
		if dropped := o.throttle.Dropped(t); dropped > 0 {
			o.log.Debug().Str("ticker", t).Int("cells", n).Int("suppressed", dropped).Msg("Ticker failed repeatedly")
		}
	}

	if err := ctx.Err(); err != nil {
		o.log.Warn().Int("evaluated", report.Evaluated).Int("total", report.CellsTotal).
			Msg("Sweep interrupted, returning partial results")
		return report, err
	}

	ev := o.log.Info().Str("run_id", report.RunID).Int("cells", report.CellsTotal).Dur("elapsed", report.Elapsed)
	if report.Best != nil {
		ev = ev.Float64("impact_weight", report.Best.ImpactWeight).Float64("avg_sharpe", *report.Best.AvgSharpe)
	}
	ev.Msg("Sweep finished")
	return report, nil
}

func (o *Optimizer) evaluate(base []model.AlphaRecord, weight float64) (res *model.ParameterResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	out, err := o.sim.Chain(base, weight)
	if err != nil {
		return nil, err
	}
	pr := out.ParameterResult()
	return &pr, nil
}

func (o *Optimizer) reportFailure(c cell, err error) {
	outcome := "error"
	if errors.Is(err, model.ErrNoData) {
		outcome = "no_data"
	}
	metrics.SweepCells.WithLabelValues(outcome).Inc()
	if o.throttle.Allow(c.ticker) {
		o.log.Warn().Err(err).Str("ticker", c.ticker).Float64("impact_weight", c.weight).
			Msg("Sweep cell has no result")
	}
}
