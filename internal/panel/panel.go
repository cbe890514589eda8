// Package panel aligns long-format price bars onto one shared calendar.
package panel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"alphafusion/pkg/model"
)

// Point is one calendar slot of a ticker's series.
// Valid is false before the ticker's first observation; Filled marks a
// slot carried forward from the last known bar.
type Point struct {
	model.PriceBar
	Valid  bool
	Filled bool
}

// Panel maps tickers to series aligned on a common ascending date index
type Panel struct {
	Dates   []time.Time
	Tickers []string
	series  map[string][]Point
}

// Build reshapes bars into a forward-filled panel.
// The calendar is the sorted union of all observed dates.
func Build(bars []model.PriceBar) (*Panel, error) {
	byTicker := make(map[string]map[time.Time]model.PriceBar)
	dateSet := make(map[time.Time]struct{})

	for i, b := range bars {
		if err := validate(b); err != nil {
			return nil, &model.ConfigurationError{Stage: "panel", Err: fmt.Errorf("bar %d: %w", i, err)}
		}
		b.Date = model.DateOnly(b.Date)

		rows, ok := byTicker[b.Ticker]
		if !ok {
			rows = make(map[time.Time]model.PriceBar)
			byTicker[b.Ticker] = rows
		}
		if _, dup := rows[b.Date]; dup {
			return nil, &model.ConfigurationError{
				Stage: "panel",
				Err:   fmt.Errorf("duplicate bar for %s on %s", b.Ticker, b.Date.Format("2006-01-02")),
			}
		}
		rows[b.Date] = b
		dateSet[b.Date] = struct{}{}
	}

	p := &Panel{
		Dates:   make([]time.Time, 0, len(dateSet)),
		Tickers: make([]string, 0, len(byTicker)),
		series:  make(map[string][]Point, len(byTicker)),
	}
	for d := range dateSet {
		p.Dates = append(p.Dates, d)
	}
	sort.Slice(p.Dates, func(i, j int) bool { return p.Dates[i].Before(p.Dates[j]) })

	for ticker := range byTicker {
		p.Tickers = append(p.Tickers, ticker)
	}
	sort.Strings(p.Tickers)

	for _, ticker := range p.Tickers {
		rows := byTicker[ticker]
		series := make([]Point, len(p.Dates))
		var last model.PriceBar
		seen := false

		for i, d := range p.Dates {
			if b, ok := rows[d]; ok {
				series[i] = Point{PriceBar: b, Valid: true}
				last = b
				seen = true
				continue
			}
			if !seen {
				series[i] = Point{PriceBar: model.PriceBar{Ticker: ticker, Date: d}}
				continue
			}
			filled := last
			filled.Date = d
			series[i] = Point{PriceBar: filled, Valid: true, Filled: true}
		}
		p.series[ticker] = series
	}

	return p, nil
}

func validate(b model.PriceBar) error {
	switch {
	case b.Ticker == "":
		return fmt.Errorf("missing ticker")
	case b.Date.IsZero():
		return fmt.Errorf("missing date")
	case math.IsNaN(b.Close):
		return fmt.Errorf("missing close")
	case math.IsNaN(b.High):
		return fmt.Errorf("missing high")
	case math.IsNaN(b.Low):
		return fmt.Errorf("missing low")
	}
	return nil
}

// Series returns the full aligned series of a ticker, including leading invalid slots
func (p *Panel) Series(ticker string) []Point {
	return p.series[ticker]
}

// Observed returns the bars from the ticker's first observation onward,
// gaps already forward-filled
func (p *Panel) Observed(ticker string) []model.PriceBar {
	series := p.series[ticker]
	out := make([]model.PriceBar, 0, len(series))
	for _, pt := range series {
		if pt.Valid {
			out = append(out, pt.PriceBar)
		}
	}
	return out
}

// Index returns the calendar position of date, or -1
func (p *Panel) Index(date time.Time) int {
	date = model.DateOnly(date)
	i := sort.Search(len(p.Dates), func(i int) bool { return !p.Dates[i].Before(date) })
	if i < len(p.Dates) && p.Dates[i].Equal(date) {
		return i
	}
	return -1
}
