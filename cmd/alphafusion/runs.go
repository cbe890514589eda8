package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"alphafusion/internal/store"
	"alphafusion/pkg/model"
)

func runsCommand(a *app) *cobra.Command {
	var runID string
	var limit int

	cmd := stageCommand(a, "runs", "List stored sweeps, or show one with --run", func(ctx context.Context, a *app) error {
		return showRuns(ctx, a, runID, limit)
	})
	cmd.Flags().StringVar(&runID, "run", "", "show the curve and per-ticker winners of one run")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of recent runs to list")
	return cmd
}

func showRuns(ctx context.Context, a *app, runID string, limit int) error {
	path := a.cfg.Store.Path
	if path == "" {
		return &model.ConfigurationError{Stage: "runs", Err: errors.New("store.path is not set")}
	}
	if _, err := os.Stat(path); err != nil {
		return &model.ConfigurationError{Stage: "runs", Err: err}
	}

	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	if runID == "" {
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if a.format == "json" {
			return outputJSON(runs)
		}
		outputRuns(runs)
		return nil
	}

	curve, err := db.Curve(ctx, runID)
	if err != nil {
		return err
	}
	if len(curve) == 0 {
		return fmt.Errorf("no stored sweep with run id %s", runID)
	}
	best, err := db.TickerBest(ctx, runID)
	if err != nil {
		return err
	}
	if a.format == "json" {
		return outputJSON(map[string]interface{}{"run_id": runID, "curve": curve, "per_ticker": best})
	}
	outputStoredRun(runID, curve, best)
	return nil
}

func outputRuns(runs []store.Run) {
	if len(runs) == 0 {
		fmt.Println("No stored sweeps.")
		return
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Run", "Started", "Tickers", "Cells", "Complete", "Best Impact", "Avg Sharpe"}),
	)
	for _, r := range runs {
		table.Append([]string{
			r.RunID,
			r.StartedAt,
			fmt.Sprintf("%d", r.Tickers),
			fmt.Sprintf("%d/%d", r.CellsEvaluated, r.CellsTotal),
			fmt.Sprintf("%t", r.Complete),
			optional(r.BestWeight, "%.2f"),
			optional(r.BestSharpe, "%.3f"),
		})
	}
	table.Render()
}

func outputStoredRun(runID string, curve []store.CurveRow, best []store.TickerBestRow) {
	fmt.Printf("Run %s\n\n", runID)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Impact", "Avg Sharpe", "Avg Return", "Tickers"}),
	)
	for _, pt := range curve {
		table.Append([]string{
			fmt.Sprintf("%.2f", pt.ImpactWeight),
			optional(pt.AvgSharpe, "%.3f"),
			pct(pt.AvgReturn),
			fmt.Sprintf("%d", pt.Tickers),
		})
	}
	table.Render()

	if len(best) == 0 {
		return
	}
	fmt.Println("\n--- Best weight per ticker ---")
	perTicker := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Impact", "Sharpe"}),
	)
	for _, tb := range best {
		perTicker.Append([]string{tb.Ticker, fmt.Sprintf("%.2f", tb.ImpactWeight), fmt.Sprintf("%.3f", tb.SharpeRatio)})
	}
	perTicker.Render()
}
