package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"alphafusion/internal/config"
	"alphafusion/internal/logging"
	"alphafusion/internal/metrics"
)

var (
	cfgFile string
	format  string
	verbose bool
	workers int
	weight  float64
)

// app is the state shared by every subcommand, filled in by the root pre-run
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	format  string
	verbose bool
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "alphafusion",
		Short: "Sentiment-augmented trend signals and backtests",
		Long: `AlphaFusion fuses a technical EMA spread with smoothed news sentiment into one
alpha score per ticker and day, then backtests and tunes the sentiment weight.

Stages (run in this order by "pipeline"):
  sentiment  - aggregate scored news into daily sentiment
  features   - compute technical indicators from the price panel
  backtest   - hybrid vs technical-only simulation
  optimize   - sweep the sentiment impact weight
  signals    - publish the latest signal per ticker

Other commands:
  runs       - list sweeps stored in the sqlite database

Examples:
  alphafusion pipeline --config config.yaml
  alphafusion optimize --workers 8 --format json`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	// Flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "parallel workers (default from config)")

	backtestCmd := stageCommand(a, "backtest", "Run the hybrid strategy against the technical-only benchmark", runBacktest)
	backtestCmd.Flags().Float64Var(&weight, "impact-weight", -1, "sentiment impact weight (default from config)")

	rootCmd.AddCommand(
		stageCommand(a, "sentiment", "Aggregate scored news into daily sentiment", runSentiment),
		stageCommand(a, "features", "Compute technical features from the price panel", runFeatures),
		backtestCmd,
		stageCommand(a, "optimize", "Sweep the sentiment impact weight", runOptimize),
		stageCommand(a, "signals", "Publish the latest signal per ticker", runSignals),
		stageCommand(a, "pipeline", "Run every stage in order, stopping at the first failure", runPipeline),
		runsCommand(a),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type stageFunc func(ctx context.Context, a *app) error

func stageCommand(a *app, use, short string, fn stageFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup context with cancellation
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// Handle interrupt
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				select {
				case <-sigChan:
					fmt.Fprintln(os.Stderr, "\nInterrupted. Stopping...")
					cancel()
				case <-ctx.Done():
				}
			}()

			if addr := a.cfg.Metrics.Addr; addr != "" {
				srv := metrics.Serve(addr)
				defer func() {
					shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
					defer done()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}
			return fn(ctx, a)
		},
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	// Load configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Override config with CLI flags
	if workers > 0 {
		cfg.Optimize.Workers = workers
	}
	if cmd.Flags().Changed("impact-weight") {
		cfg.Fusion.ImpactWeight = weight
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.cfg = cfg
	a.log = logging.New(cfg.Log.Level, cfg.Log.Format)
	a.format = format
	a.verbose = verbose
	return nil
}
