// Package sentiment reduces scored news to daily values and smooths them
// along the panel calendar.
package sentiment

import (
	"math"
	"sort"
	"time"

	"alphafusion/pkg/model"
)

type key struct {
	ticker string
	date   time.Time
}

// Aggregate groups news by ticker and calendar date into mean score and count.
// Items with a missing or out-of-range score are dropped and counted.
func Aggregate(items []model.NewsItem) (daily []model.SentimentDaily, dropped int) {
	sums := make(map[key]float64)
	counts := make(map[key]int)

	for _, it := range items {
		if it.Ticker == "" || math.IsNaN(it.SentimentScore) || it.SentimentScore < -1 || it.SentimentScore > 1 {
			dropped++
			continue
		}
		k := key{ticker: it.Ticker, date: model.DateOnly(it.Timestamp)}
		sums[k] += it.SentimentScore
		counts[k]++
	}

	daily = make([]model.SentimentDaily, 0, len(counts))
	for k, n := range counts {
		daily = append(daily, model.SentimentDaily{
			Ticker:       k.ticker,
			Date:         k.date,
			SentimentAvg: sums[k] / float64(n),
			NewsCount:    n,
		})
	}
	sort.Slice(daily, func(i, j int) bool {
		if daily[i].Ticker != daily[j].Ticker {
			return daily[i].Ticker < daily[j].Ticker
		}
		return daily[i].Date.Before(daily[j].Date)
	})
	return daily, dropped
}

// Smoothed holds the trailing mean sentiment per ticker aligned on a calendar
type Smoothed struct {
	dates  []time.Time
	index  map[time.Time]int
	values map[string][]float64
	window int
}

// Smooth aligns daily sentiment onto dates for the given tickers and applies a
// trailing simple moving average. Days without news count as neutral (0).
// The first window-1 dates are undefined (NaN).
func Smooth(daily []model.SentimentDaily, dates []time.Time, tickers []string, window int) *Smoothed {
	s := &Smoothed{
		dates:  dates,
		index:  make(map[time.Time]int, len(dates)),
		values: make(map[string][]float64, len(tickers)),
		window: window,
	}
	for i, d := range dates {
		s.index[model.DateOnly(d)] = i
	}

	raw := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		raw[t] = make([]float64, len(dates))
	}
	for _, d := range daily {
		series, ok := raw[d.Ticker]
		if !ok {
			continue
		}
		i, ok := s.index[model.DateOnly(d.Date)]
		if !ok {
			continue // news on a date with no price rows
		}
		series[i] = d.SentimentAvg
	}

	for t, series := range raw {
		out := make([]float64, len(series))
		for i := range series {
			if i < window-1 {
				out[i] = math.NaN()
				continue
			}
			// summed per window so an all-neutral window is exactly 0
			var sum float64
			for j := i - window + 1; j <= i; j++ {
				sum += series[j]
			}
			out[i] = sum / float64(window)
		}
		s.values[t] = out
	}
	return s
}

// At returns the smoothed sentiment of ticker on date, NaN when undefined
func (s *Smoothed) At(ticker string, date time.Time) float64 {
	series, ok := s.values[ticker]
	if !ok {
		return math.NaN()
	}
	i, ok := s.index[model.DateOnly(date)]
	if !ok {
		return math.NaN()
	}
	return series[i]
}

// Series returns the smoothed values of ticker along the calendar
func (s *Smoothed) Series(ticker string) []float64 {
	return s.values[ticker]
}
