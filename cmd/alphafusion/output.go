package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"alphafusion/internal/backtest"
	"alphafusion/internal/optimize"
	"alphafusion/pkg/model"
)

func pct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

func optional(v *float64, layout string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(layout, *v)
}

func outputBacktest(hybrid, tech *backtest.BatchResult, mc map[string]*backtest.MonteCarloResult) {
	fmt.Printf("Hybrid (impact %.2f) vs technical-only over %d tickers\n\n", hybrid.ImpactWeight, len(hybrid.Results))

	summary := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Strategy", "Mean Return", "Mean Win Rate", "Mean Sharpe"}),
	)
	for _, b := range []*backtest.BatchResult{hybrid, tech} {
		winRate := "-"
		if b.MeanWinRate != nil {
			winRate = fmt.Sprintf("%.1f%%", *b.MeanWinRate*100)
		}
		summary.Append([]string{b.Strategy, pct(b.MeanTotalReturn), winRate, optional(b.MeanSharpe, "%.2f")})
	}
	summary.Render()
	fmt.Println()

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Hybrid", "Technical", "Diff", "Trades", "Sharpe", "Max DD"}),
	)
	for _, row := range backtest.Compare(hybrid, tech) {
		r := hybrid.Results[row.Ticker]
		table.Append([]string{
			row.Ticker,
			pct(row.HybridReturn),
			pct(row.TechReturn),
			pct(row.Difference),
			fmt.Sprintf("%d", row.HybridTrades),
			optional(r.SharpeRatio, "%.2f"),
			fmt.Sprintf("%.1f%%", r.MaxDrawdown*100),
		})
	}
	table.Render()

	if len(hybrid.Skipped) > 0 {
		fmt.Printf("\nNo result for: %v\n", hybrid.Skipped)
	}

	if len(mc) == 0 {
		return
	}
	fmt.Println("\n--- Monte Carlo (trade order resampling) ---")
	mcTable := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Median", "P5", "P95", "Median DD", "P95 DD", "Ruin"}),
	)
	for _, t := range hybrid.Tickers() {
		r, ok := mc[t]
		if !ok {
			continue
		}
		mcTable.Append([]string{
			t,
			pct(r.MedianReturn),
			pct(r.WorstCase),
			pct(r.BestCase),
			fmt.Sprintf("%.1f%%", r.MedianDrawdown*100),
			fmt.Sprintf("%.1f%%", r.WorstDrawdown*100),
			fmt.Sprintf("%.1f%%", r.RuinProbability*100),
		})
	}
	mcTable.Render()
}

func outputSweep(r *optimize.Report) {
	if !r.Complete {
		fmt.Printf("Sweep interrupted: %d of %d cells evaluated\n\n", r.Evaluated, r.CellsTotal)
	}
	if r.Best == nil {
		fmt.Println("No impact weight produced a defined Sharpe ratio.")
	} else {
		fmt.Printf("Best impact weight: %.2f (average Sharpe %.3f over %d tickers)\n\n",
			r.Best.ImpactWeight, *r.Best.AvgSharpe, r.Best.Tickers)
	}

	top := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Rank", "Impact", "Avg Sharpe", "Avg Return", "Tickers"}),
	)
	for i, pt := range r.Top {
		top.Append([]string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.2f", pt.ImpactWeight),
			optional(pt.AvgSharpe, "%.3f"),
			pct(pt.AvgReturn),
			fmt.Sprintf("%d", pt.Tickers),
		})
	}
	top.Render()

	if len(r.PerTicker) > 0 {
		fmt.Println("\n--- Best weight per ticker ---")
		table := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"Ticker", "Impact", "Sharpe"}),
		)
		for _, tb := range r.PerTicker {
			table.Append([]string{tb.Ticker, fmt.Sprintf("%.2f", tb.ImpactWeight), fmt.Sprintf("%.3f", tb.SharpeRatio)})
		}
		table.Render()
	}

	fmt.Printf("\nRun %s: %d cells in %s\n", r.RunID, r.Evaluated, r.Elapsed.Round(time.Millisecond))
}

func outputSignals(records []model.SignalRecord, verbose bool) {
	if len(records) == 0 {
		fmt.Println("No ticker has a defined alpha score yet.")
		return
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Date", "Close", "Tech", "Sentiment", "Alpha", "Signal"}),
	)
	for _, r := range records {
		table.Append([]string{
			r.Ticker,
			r.Date,
			fmt.Sprintf("%.2f", r.ClosePrice),
			fmt.Sprintf("%.5f", r.TechScore),
			fmt.Sprintf("%.4f", r.SentimentScore),
			fmt.Sprintf("%.5f", r.AlphaScore),
			r.Signal,
		})
	}
	table.Render()

	if verbose {
		fmt.Println()
		for _, r := range records {
			fmt.Printf("%s\n", r.Narrative)
		}
	}
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
