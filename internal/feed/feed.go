// Package feed builds the latest-signal records published for the dashboard.
package feed

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"alphafusion/internal/alpha"
	"alphafusion/internal/explain"
	"alphafusion/internal/metrics"
	"alphafusion/pkg/model"
)

// Decimal places of the published values
const (
	ClosePlaces     = 2
	TechPlaces      = 5
	SentimentPlaces = 4
	AlphaPlaces     = 5
)

// Builder turns prepared alpha records into one signal record per ticker
type Builder struct {
	impactWeight float64
	log          zerolog.Logger
}

// NewBuilder creates a builder scoring at impactWeight
func NewBuilder(impactWeight float64, log zerolog.Logger) *Builder {
	return &Builder{impactWeight: impactWeight, log: log.With().Str("stage", "signals").Logger()}
}

// Build scores every ticker at the live weight and keeps its last defined record.
// Tickers without any defined alpha are left out. Output is sorted by ticker.
func (b *Builder) Build(prepared map[string][]model.AlphaRecord) []model.SignalRecord {
	tickers := make([]string, 0, len(prepared))
	for t := range prepared {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	out := make([]model.SignalRecord, 0, len(tickers))
	for _, t := range tickers {
		rec, ok := Latest(alpha.Reweight(prepared[t], b.impactWeight))
		if !ok {
			b.log.Warn().Str("ticker", t).Msg("No defined alpha, ticker left out of the feed")
			metrics.TickersSkipped.WithLabelValues("signals", "no_data").Inc()
			continue
		}
		sr := Record(rec)
		b.log.Debug().Str("ticker", t).Str("signal", sr.Signal).Float64("alpha", sr.AlphaScore).Msg("Signal")
		out = append(out, sr)
	}
	return out
}

// Latest returns the last record with a defined alpha
func Latest(records []model.AlphaRecord) (model.AlphaRecord, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Defined() {
			return records[i], true
		}
	}
	return model.AlphaRecord{}, false
}

// Record classifies on the unrounded scores and rounds values for publication
func Record(r model.AlphaRecord) model.SignalRecord {
	status, narrative := explain.Narrate(r.Ticker, explain.Scores{
		Tech:      r.TechScore,
		Sentiment: r.SentimentScore,
		Alpha:     r.AlphaScore,
	})
	return model.SignalRecord{
		Ticker:         r.Ticker,
		Date:           r.Date.Format("2006-01-02"),
		ClosePrice:     Round(r.Close, ClosePlaces),
		TechScore:      Round(r.TechScore, TechPlaces),
		SentimentScore: Round(r.SentimentScore, SentimentPlaces),
		AlphaScore:     Round(r.AlphaScore, AlphaPlaces),
		Signal:         string(status),
		Narrative:      narrative,
	}
}

// Round rounds half away from zero to places decimals
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
