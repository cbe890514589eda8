// Package alpha fuses the technical spread and smoothed sentiment into one score.
package alpha

import (
	"math"
	"time"

	"alphafusion/pkg/model"
)

// SentimentSource supplies smoothed sentiment, NaN when undefined
type SentimentSource interface {
	At(ticker string, date time.Time) float64
}

// TechScore is the EMA spread normalized by price
func TechScore(f model.FeatureRow) float64 {
	return (f.EMAFast - f.EMASlow) / f.Close
}

// Prepare computes the weight-independent parts of each record.
// AlphaScore is left NaN until Reweight is applied.
func Prepare(rows []model.FeatureRow, src SentimentSource) []model.AlphaRecord {
	out := make([]model.AlphaRecord, len(rows))
	for i, f := range rows {
		out[i] = model.AlphaRecord{
			Ticker:         f.Ticker,
			Date:           f.Date,
			Close:          f.Close,
			TechScore:      TechScore(f),
			SentimentScore: src.At(f.Ticker, f.Date),
			AlphaScore:     math.NaN(),
		}
	}
	return out
}

// Reweight returns a new slice with alpha = tech + impactWeight * sentiment.
// The input is not modified, so prepared records can be shared across workers.
func Reweight(base []model.AlphaRecord, impactWeight float64) []model.AlphaRecord {
	out := make([]model.AlphaRecord, len(base))
	for i, r := range base {
		r.AlphaScore = Score(r.TechScore, r.SentimentScore, impactWeight)
		out[i] = r
	}
	return out
}

// Score combines the two components; NaN propagates when sentiment is undefined.
// impactWeight must be finite.
func Score(tech, sentiment, impactWeight float64) float64 {
	return tech + impactWeight*sentiment
}

// Fuse is Prepare followed by Reweight
func Fuse(rows []model.FeatureRow, src SentimentSource, impactWeight float64) []model.AlphaRecord {
	return Reweight(Prepare(rows, src), impactWeight)
}
