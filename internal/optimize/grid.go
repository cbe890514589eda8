// Package optimize sweeps the sentiment impact weight and ranks the outcomes.
package optimize

import (
	"math"
	"sort"

	"alphafusion/pkg/model"
)

// NewGrid returns start, start+step, ... up to stop inclusive.
// Values are rounded to 10 decimals so 0.1 steps do not drift.
func NewGrid(start, stop, step float64) []float64 {
	if step <= 0 || stop < start {
		return nil
	}
	n := int(math.Floor((stop-start)/step+1e-9)) + 1
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = math.Round((start+float64(i)*step)*1e10) / 1e10
	}
	return grid
}

// CurvePoint is the cross-ticker average Sharpe of one weight
type CurvePoint struct {
	ImpactWeight float64  `json:"impact_weight"`
	AvgSharpe    *float64 `json:"avg_sharpe"`
	Tickers      int      `json:"tickers"` // tickers with a defined Sharpe
	AvgReturn    float64  `json:"avg_return"`
}

// TickerBest is the weight maximizing one ticker's own Sharpe
type TickerBest struct {
	Ticker       string  `json:"ticker"`
	ImpactWeight float64 `json:"impact_weight"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
}

// Ranking is the deterministic summary of a result matrix
type Ranking struct {
	Curve     []CurvePoint `json:"curve"`
	Best      *CurvePoint  `json:"best"`
	Top       []CurvePoint `json:"top"`
	PerTicker []TickerBest `json:"per_ticker"`
}

// Rank aggregates results per weight and picks winners.
// Results are ordered by weight ascending before any comparison, and a
// candidate only wins with a strictly greater Sharpe, so ties go to the
// smallest weight. Undefined Sharpe values are skipped.
func Rank(results []model.ParameterResult, topN int) Ranking {
	sorted := make([]model.ParameterResult, len(results))
	copy(sorted, results)
	SortResults(sorted)

	var r Ranking
	for i := 0; i < len(sorted); {
		w := sorted[i].ImpactWeight
		var sharpeSum, returnSum float64
		var defined, count int
		for ; i < len(sorted) && sorted[i].ImpactWeight == w; i++ {
			count++
			returnSum += sorted[i].TotalReturn
			if s := sorted[i].SharpeRatio; s != nil {
				sharpeSum += *s
				defined++
			}
		}
		pt := CurvePoint{ImpactWeight: w, Tickers: defined, AvgReturn: returnSum / float64(count)}
		if defined > 0 {
			pt.AvgSharpe = model.Float(sharpeSum / float64(defined))
		}
		r.Curve = append(r.Curve, pt)
	}

	for i := range r.Curve {
		pt := r.Curve[i]
		if pt.AvgSharpe == nil {
			continue
		}
		if r.Best == nil || *pt.AvgSharpe > *r.Best.AvgSharpe {
			r.Best = &pt
		}
	}

	for _, pt := range r.Curve {
		if pt.AvgSharpe != nil {
			r.Top = append(r.Top, pt)
		}
	}
	sort.SliceStable(r.Top, func(i, j int) bool {
		return *r.Top[i].AvgSharpe > *r.Top[j].AvgSharpe
	})
	if topN > 0 && len(r.Top) > topN {
		r.Top = r.Top[:topN]
	}

	best := make(map[string]TickerBest)
	var tickers []string
	for _, res := range sorted {
		if res.SharpeRatio == nil {
			continue
		}
		cur, ok := best[res.Ticker]
		if !ok {
			tickers = append(tickers, res.Ticker)
		}
		if !ok || *res.SharpeRatio > cur.SharpeRatio {
			best[res.Ticker] = TickerBest{Ticker: res.Ticker, ImpactWeight: res.ImpactWeight, SharpeRatio: *res.SharpeRatio}
		}
	}
	sort.Strings(tickers)
	for _, t := range tickers {
		r.PerTicker = append(r.PerTicker, best[t])
	}
	return r
}

// SortResults orders results by weight ascending, then ticker
func SortResults(results []model.ParameterResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].ImpactWeight != results[j].ImpactWeight {
			return results[i].ImpactWeight < results[j].ImpactWeight
		}
		return results[i].Ticker < results[j].Ticker
	})
}
