// Package indicator derives per-ticker technical features from a price panel.
package indicator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"alphafusion/internal/config"
	"alphafusion/internal/metrics"
	"alphafusion/internal/panel"
	"alphafusion/pkg/model"
)

// Result holds the features of every ticker that completed warm-up
type Result struct {
	Features map[string][]model.FeatureRow
	Skipped  []error // InsufficientHistoryError or TickerError per excluded ticker
}

// Tickers returns the tickers with features, in panel order
func (r *Result) Tickers(p *panel.Panel) []string {
	out := make([]string, 0, len(r.Features))
	for _, t := range p.Tickers {
		if _, ok := r.Features[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Engine computes features independently per ticker
type Engine struct {
	config  config.IndicatorConfig
	workers int
	log     zerolog.Logger
}

// NewEngine creates a new indicator engine
func NewEngine(cfg config.IndicatorConfig, workers int, log zerolog.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{config: cfg, workers: workers, log: log.With().Str("stage", "features").Logger()}
}

// WarmUp returns the number of bars needed before the first fully defined row
func WarmUp(cfg config.IndicatorConfig) int {
	need := cfg.Slow
	for _, n := range []int{cfg.Fast, cfg.Volatility + 1, cfg.RSI + 1, cfg.ATR + 1} {
		if n > need {
			need = n
		}
	}
	return need
}

// ComputeTicker calculates the feature rows of one ticker from bars that
// are all real observations. Warm-up rows are dropped.
func (e *Engine) ComputeTicker(ticker string, bars []model.PriceBar) ([]model.FeatureRow, error) {
	return e.compute(ticker, bars, nil)
}

// ComputePoints calculates the feature rows of one panel series. Only real
// observations count toward warm-up; forward-filled slots carry values but
// never complete a window on their own.
func (e *Engine) ComputePoints(ticker string, points []panel.Point) ([]model.FeatureRow, error) {
	bars := make([]model.PriceBar, 0, len(points))
	filled := make([]bool, 0, len(points))
	for _, pt := range points {
		if !pt.Valid {
			continue
		}
		bars = append(bars, pt.PriceBar)
		filled = append(filled, pt.Filled)
	}
	return e.compute(ticker, bars, filled)
}

func (e *Engine) compute(ticker string, bars []model.PriceBar, filled []bool) ([]model.FeatureRow, error) {
	need := WarmUp(e.config)
	observed := len(bars)
	for _, f := range filled {
		if f {
			observed--
		}
	}
	if observed < need {
		return nil, &model.InsufficientHistoryError{Ticker: ticker, Bars: observed, Need: need}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		if b.Close <= 0 {
			return nil, fmt.Errorf("non-positive close %.4f on %s", b.Close, b.Date.Format("2006-01-02"))
		}
		closes[i] = b.Close
	}

	returns := Returns(closes)
	logReturns := LogReturns(closes)
	vol := RollingStd(logReturns, e.config.Volatility)
	emaFast := EMA(closes, e.config.Fast)
	emaSlow := EMA(closes, e.config.Slow)
	rsi := RSI(closes, e.config.RSI)
	atr := ATR(bars, e.config.ATR)
	annualize := math.Sqrt(float64(e.config.Annualization))

	rows := make([]model.FeatureRow, 0, len(bars)-need+1)
	seen := 0
	for i := range bars {
		if filled == nil || !filled[i] {
			seen++
		}
		if seen < need {
			continue
		}
		row := model.FeatureRow{
			Ticker:        ticker,
			Date:          bars[i].Date,
			Close:         closes[i],
			Returns:       returns[i],
			LogReturns:    logReturns[i],
			Volatility21d: vol[i] * annualize,
			EMAFast:       emaFast[i],
			EMASlow:       emaSlow[i],
			RSI:           rsi[i],
			ATR:           atr[i],
			TrendStrength: (closes[i] - emaSlow[i]) / emaSlow[i],
		}
		if !defined(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func defined(r model.FeatureRow) bool {
	for _, v := range []float64{r.Returns, r.LogReturns, r.Volatility21d, r.EMAFast, r.EMASlow, r.RSI, r.ATR, r.TrendStrength} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Compute runs the engine over every ticker of the panel in parallel.
// Per-ticker failures are logged and reported in Result.Skipped.
func (e *Engine) Compute(ctx context.Context, p *panel.Panel) (*Result, error) {
	start := time.Now()
	defer metrics.ObserveStage("features", start)

	type outcome struct {
		rows []model.FeatureRow
		err  error
	}
	outcomes := make([]outcome, len(p.Tickers))

	jobs := make(chan int, len(p.Tickers))
	for i := range p.Tickers {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				ticker := p.Tickers[i]
				rows, err := e.safeCompute(ticker, p.Series(ticker))
				outcomes[i] = outcome{rows: rows, err: err}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Features: make(map[string][]model.FeatureRow)}
	for i, o := range outcomes {
		ticker := p.Tickers[i]
		var short *model.InsufficientHistoryError
		switch {
		case errors.As(o.err, &short):
			e.log.Warn().Str("ticker", ticker).Int("bars", short.Bars).Int("need", short.Need).
				Msg("Insufficient history, ticker excluded")
			metrics.TickersSkipped.WithLabelValues("features", "insufficient_history").Inc()
			result.Skipped = append(result.Skipped, o.err)
		case o.err != nil:
			e.log.Error().Err(o.err).Str("ticker", ticker).Msg("Feature computation failed, ticker skipped")
			metrics.TickersSkipped.WithLabelValues("features", "error").Inc()
			result.Skipped = append(result.Skipped, o.err)
		case len(o.rows) == 0:
			metrics.TickersSkipped.WithLabelValues("features", "undefined").Inc()
			result.Skipped = append(result.Skipped, &model.TickerError{Ticker: ticker, Stage: "features", Err: model.ErrNoData})
		default:
			result.Features[ticker] = o.rows
		}
	}

	e.log.Info().Int("tickers", len(result.Features)).Int("skipped", len(result.Skipped)).
		Msg("Feature engineering finished")
	return result, nil
}

func (e *Engine) safeCompute(ticker string, points []panel.Point) (rows []model.FeatureRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &model.TickerError{Ticker: ticker, Stage: "features", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	rows, err = e.ComputePoints(ticker, points)
	if err != nil {
		var short *model.InsufficientHistoryError
		if !errors.As(err, &short) {
			err = &model.TickerError{Ticker: ticker, Stage: "features", Err: err}
		}
	}
	return rows, err
}

// Flatten returns all rows ordered by ticker then date
func Flatten(p *panel.Panel, r *Result) []model.FeatureRow {
	var out []model.FeatureRow
	for _, t := range r.Tickers(p) {
		out = append(out, r.Features[t]...)
	}
	return out
}
