package alpha

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphafusion/pkg/model"
)

type fixedSentiment map[string]float64

func (f fixedSentiment) At(ticker string, _ time.Time) float64 {
	v, ok := f[ticker]
	if !ok {
		return math.NaN()
	}
	return v
}

func row(ticker string, close, fast, slow float64) model.FeatureRow {
	return model.FeatureRow{
		Ticker:  ticker,
		Date:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Close:   close,
		EMAFast: fast,
		EMASlow: slow,
	}
}

func TestTechScoreIsScaleFree(t *testing.T) {
	cheap := TechScore(row("A", 10, 10.5, 10))
	pricey := TechScore(row("B", 1000, 1050, 1000))
	assert.InDelta(t, 0.05, cheap, 1e-12)
	assert.InDelta(t, cheap, pricey, 1e-12)
}

func TestFuseLinearCombination(t *testing.T) {
	rows := []model.FeatureRow{row("A", 100, 102, 100)}
	recs := Fuse(rows, fixedSentiment{"A": -0.1}, 0.5)
	require.Len(t, recs, 1)

	assert.InDelta(t, 0.02, recs[0].TechScore, 1e-12)
	assert.Equal(t, -0.1, recs[0].SentimentScore)
	assert.InDelta(t, 0.02-0.05, recs[0].AlphaScore, 1e-12)
	assert.Equal(t, 100.0, recs[0].Close)
}

func TestZeroSentimentEqualsTechForAnyWeight(t *testing.T) {
	rows := []model.FeatureRow{row("A", 97.3, 98.11, 99.7)}
	for _, w := range []float64{0, 0.1, 0.7, 2, -3, 1e9} {
		rec := Fuse(rows, fixedSentiment{"A": 0}, w)[0]
		if rec.AlphaScore != rec.TechScore {
			t.Errorf("weight %v: expected alpha %v to equal tech %v", w, rec.AlphaScore, rec.TechScore)
		}
	}
}

func TestUndefinedSentimentLeavesAlphaUndefined(t *testing.T) {
	rec := Fuse([]model.FeatureRow{row("A", 100, 101, 100)}, fixedSentiment{}, 0.3)[0]
	assert.True(t, math.IsNaN(rec.AlphaScore))
	assert.False(t, rec.Defined())
}

func TestReweightDoesNotMutateBase(t *testing.T) {
	base := Prepare([]model.FeatureRow{row("A", 100, 101, 100)}, fixedSentiment{"A": 0.2})
	first := Reweight(base, 1)
	second := Reweight(base, 2)

	assert.True(t, math.IsNaN(base[0].AlphaScore))
	assert.InDelta(t, 0.01+0.2, first[0].AlphaScore, 1e-12)
	assert.InDelta(t, 0.01+0.4, second[0].AlphaScore, 1e-12)
}
