package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"alphafusion/internal/alpha"
	"alphafusion/internal/backtest"
	"alphafusion/internal/dataio"
	"alphafusion/internal/feed"
	"alphafusion/internal/indicator"
	"alphafusion/internal/metrics"
	"alphafusion/internal/optimize"
	"alphafusion/internal/panel"
	"alphafusion/internal/sentiment"
	"alphafusion/internal/signal"
	"alphafusion/internal/store"
	"alphafusion/pkg/model"
)

func runSentiment(ctx context.Context, a *app) error {
	start := time.Now()
	defer metrics.ObserveStage("sentiment", start)

	items, skipped, err := dataio.ReadNews(a.cfg.Path(a.cfg.Data.NewsFile))
	if err != nil {
		return err
	}
	daily, dropped := sentiment.Aggregate(items)
	if err := dataio.WriteSentiment(a.cfg.Path(a.cfg.Data.SentimentFile), daily); err != nil {
		return err
	}

	a.log.Info().Str("stage", "sentiment").Int("articles", len(items)).Int("bad_rows", skipped).
		Int("dropped_scores", dropped).Int("ticker_days", len(daily)).Msg("Daily sentiment written")
	return nil
}

func runFeatures(ctx context.Context, a *app) error {
	p, err := loadPanel(a)
	if err != nil {
		return err
	}

	engine := indicator.NewEngine(a.cfg.Indicators, a.cfg.Optimize.Workers, a.log)
	result, err := engine.Compute(ctx, p)
	if err != nil {
		return err
	}
	rows := indicator.Flatten(p, result)
	if err := dataio.WriteFeatures(a.cfg.Path(a.cfg.Data.FeaturesFile), rows); err != nil {
		return err
	}

	a.log.Info().Str("stage", "features").Int("rows", len(rows)).Int("tickers", len(result.Features)).
		Int("warmup", indicator.WarmUp(a.cfg.Indicators)).Msg("Features written")
	return nil
}

func runBacktest(ctx context.Context, a *app) error {
	prepared, err := loadPrepared(a)
	if err != nil {
		return err
	}

	sim := backtest.NewSimulator(a.cfg.Backtest, a.cfg.Indicators.Annualization)
	runner := backtest.NewBatchRunner(sim, a.log)

	hybrid, err := runner.Run(ctx, prepared, "hybrid", a.cfg.Fusion.ImpactWeight)
	if err != nil {
		return err
	}
	tech, err := runner.Run(ctx, prepared, "technical", 0)
	if err != nil {
		return err
	}

	events := eventFeed(prepared, a.cfg.Fusion.ImpactWeight)
	if err := dataio.WriteJSON(a.cfg.Path(a.cfg.Data.EventsFile), events); err != nil {
		return err
	}

	var mc map[string]*backtest.MonteCarloResult
	if n := a.cfg.Backtest.MonteCarloRuns; n > 0 {
		mc = make(map[string]*backtest.MonteCarloResult)
		for _, t := range hybrid.Tickers() {
			if r := backtest.RunMonteCarlo(hybrid.Results[t].Trades, a.cfg.Backtest.InitialCash, n, a.cfg.Backtest.Seed); r != nil {
				mc[t] = r
			}
		}
	}

	if a.format == "json" {
		return outputJSON(map[string]interface{}{
			"hybrid":      hybrid,
			"technical":   tech,
			"comparison":  backtest.Compare(hybrid, tech),
			"events":      events,
			"monte_carlo": mc,
		})
	}
	outputBacktest(hybrid, tech, mc)
	fmt.Printf("\n%d hybrid signal events written to %s\n", len(events), a.cfg.Path(a.cfg.Data.EventsFile))
	return nil
}

// eventFeed merges every ticker's ENTER/EXIT events at impactWeight
func eventFeed(prepared map[string][]model.AlphaRecord, impactWeight float64) []model.Event {
	scored := make(map[string][]model.AlphaRecord, len(prepared))
	for t, base := range prepared {
		scored[t] = alpha.Reweight(base, impactWeight)
	}
	return signal.GenerateAll(scored)
}

func runOptimize(ctx context.Context, a *app) error {
	prepared, err := loadPrepared(a)
	if err != nil {
		return err
	}

	sim := backtest.NewSimulator(a.cfg.Backtest, a.cfg.Indicators.Annualization)
	opt := optimize.NewOptimizer(sim, a.cfg.Optimize, a.log)

	total := len(optimize.NewGrid(a.cfg.Optimize.Start, a.cfg.Optimize.Stop, a.cfg.Optimize.Step)) * len(prepared)
	bar := newProgressBar(total, "Sweeping")
	opt.SetProgressCallback(func(done, total int) {
		bar.Set(done)
	})

	report, runErr := opt.Run(ctx, prepared)
	bar.Finish()
	fmt.Println()
	if report == nil {
		return runErr
	}

	// partial results of an interrupted sweep are still written
	if err := dataio.WriteJSON(a.cfg.Path(a.cfg.Data.SweepReportFile), report); err != nil {
		return err
	}
	if a.cfg.Store.Path != "" {
		if err := saveSweep(a, report); err != nil {
			return err
		}
	}

	if a.format == "json" {
		if err := outputJSON(report); err != nil {
			return err
		}
	} else {
		outputSweep(report)
	}
	return runErr
}

func saveSweep(a *app, report *optimize.Report) error {
	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(ctx, a.cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveSweep(ctx, report); err != nil {
		return err
	}
	a.log.Info().Str("run_id", report.RunID).Str("path", a.cfg.Store.Path).Msg("Sweep summary stored")
	return nil
}

func runSignals(ctx context.Context, a *app) error {
	start := time.Now()
	defer metrics.ObserveStage("signals", start)

	prepared, err := loadPrepared(a)
	if err != nil {
		return err
	}

	records := feed.NewBuilder(a.cfg.Fusion.LiveImpactWeight, a.log).Build(prepared)
	if err := dataio.WriteJSON(a.cfg.Path(a.cfg.Data.SignalsFile), records); err != nil {
		return err
	}
	a.log.Info().Str("stage", "signals").Int("tickers", len(records)).Msg("Signal feed published")

	if a.format == "json" {
		return outputJSON(records)
	}
	outputSignals(records, a.verbose)
	return nil
}

func runPipeline(ctx context.Context, a *app) error {
	steps := []struct {
		name string
		fn   stageFunc
	}{
		{"sentiment", runSentiment},
		{"features", runFeatures},
		{"backtest", runBacktest},
		{"optimize", runOptimize},
		{"signals", runSignals},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.log.Info().Str("step", step.name).Msg("Running step")
		if err := step.fn(ctx, a); err != nil {
			return fmt.Errorf("step %s failed: %w", step.name, err)
		}
	}
	a.log.Info().Msg("Pipeline completed")
	return nil
}

func loadPanel(a *app) (*panel.Panel, error) {
	bars, skipped, err := dataio.ReadPrices(a.cfg.Path(a.cfg.Data.PricesFile))
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		a.log.Warn().Int("rows", skipped).Msg("Price rows without usable values were skipped")
	}
	if len(bars) == 0 {
		return nil, &model.ConfigurationError{Stage: "prices", Err: errors.New("no price rows")}
	}
	return panel.Build(bars)
}

// loadPrepared reads the stage outputs and computes the weight-independent
// alpha components. Sentiment is smoothed on the full price calendar.
func loadPrepared(a *app) (map[string][]model.AlphaRecord, error) {
	p, err := loadPanel(a)
	if err != nil {
		return nil, err
	}
	rows, err := dataio.ReadFeatures(a.cfg.Path(a.cfg.Data.FeaturesFile))
	if err != nil {
		return nil, err
	}
	daily, err := dataio.ReadSentiment(a.cfg.Path(a.cfg.Data.SentimentFile))
	if err != nil {
		return nil, err
	}

	byTicker := make(map[string][]model.FeatureRow)
	for _, r := range rows {
		byTicker[r.Ticker] = append(byTicker[r.Ticker], r)
	}
	if len(byTicker) == 0 {
		return nil, &model.ConfigurationError{Stage: "features", Err: errors.New("no feature rows, every ticker lacks history")}
	}

	smoothed := sentiment.Smooth(daily, p.Dates, p.Tickers, a.cfg.Sentiment.Window)
	prepared := make(map[string][]model.AlphaRecord, len(byTicker))
	for t, fr := range byTicker {
		prepared[t] = alpha.Prepare(fr, smoothed)
	}
	return prepared, nil
}

func newProgressBar(total int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
