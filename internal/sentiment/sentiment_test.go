package sentiment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphafusion/pkg/model"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregateMeanAndCount(t *testing.T) {
	items := []model.NewsItem{
		{Ticker: "AAPL", Timestamp: day(1).Add(9 * time.Hour), SentimentScore: 0.5},
		{Ticker: "AAPL", Timestamp: day(1).Add(15 * time.Hour), SentimentScore: -0.1},
		{Ticker: "AAPL", Timestamp: day(2).Add(1 * time.Hour), SentimentScore: 0.3},
		{Ticker: "BTC", Timestamp: day(1), SentimentScore: -0.8},
		{Ticker: "BTC", Timestamp: day(1), SentimentScore: math.NaN()},
		{Ticker: "BTC", Timestamp: day(1), SentimentScore: 1.5},
	}

	daily, dropped := Aggregate(items)
	assert.Equal(t, 2, dropped)
	require.Len(t, daily, 3)

	assert.Equal(t, "AAPL", daily[0].Ticker)
	assert.Equal(t, day(1), daily[0].Date)
	assert.InDelta(t, 0.2, daily[0].SentimentAvg, 1e-12)
	assert.Equal(t, 2, daily[0].NewsCount)

	assert.Equal(t, day(2), daily[1].Date)
	assert.Equal(t, 1, daily[1].NewsCount)

	assert.Equal(t, "BTC", daily[2].Ticker)
	assert.Equal(t, -0.8, daily[2].SentimentAvg)
}

func TestSmoothTrailingMeanWithNeutralGaps(t *testing.T) {
	dates := []time.Time{day(1), day(2), day(3), day(4), day(5)}
	daily := []model.SentimentDaily{
		{Ticker: "AAPL", Date: day(1), SentimentAvg: 0.6, NewsCount: 1},
		{Ticker: "AAPL", Date: day(3), SentimentAvg: 0.3, NewsCount: 2},
	}

	s := Smooth(daily, dates, []string{"AAPL", "SPY"}, 3)

	aapl := s.Series("AAPL")
	assert.True(t, math.IsNaN(aapl[0]))
	assert.True(t, math.IsNaN(aapl[1]))
	assert.InDelta(t, 0.3, aapl[2], 1e-12) // (0.6+0+0.3)/3
	assert.InDelta(t, 0.1, aapl[3], 1e-12) // (0+0.3+0)/3
	assert.InDelta(t, 0.1, aapl[4], 1e-12) // (0.3+0+0)/3

	spy := s.Series("SPY")
	for i := 2; i < len(spy); i++ {
		assert.Equal(t, 0.0, spy[i], "no news is neutral")
	}

	assert.InDelta(t, 0.1, s.At("AAPL", day(4).Add(5*time.Hour)), 1e-12)
	assert.True(t, math.IsNaN(s.At("AAPL", day(20))))
	assert.True(t, math.IsNaN(s.At("MSFT", day(4))))
}

func TestSmoothReturnsExactZeroAfterNewsLeavesWindow(t *testing.T) {
	dates := []time.Time{day(1), day(2), day(3), day(4), day(5), day(6)}
	daily := []model.SentimentDaily{
		{Ticker: "X", Date: day(1), SentimentAvg: 0.1},
		{Ticker: "X", Date: day(2), SentimentAvg: 0.2},
	}
	s := Smooth(daily, dates, []string{"X"}, 2)
	assert.Equal(t, 0.0, s.At("X", day(5)))
}

func TestSmoothIgnoresDatesOffCalendar(t *testing.T) {
	dates := []time.Time{day(1), day(2)}
	daily := []model.SentimentDaily{{Ticker: "X", Date: day(9), SentimentAvg: 1}}
	s := Smooth(daily, dates, []string{"X"}, 1)
	assert.Equal(t, []float64{0, 0}, s.Series("X"))
}

func TestSmoothNoLookahead(t *testing.T) {
	dates := []time.Time{day(1), day(2), day(3), day(4)}
	base := []model.SentimentDaily{{Ticker: "X", Date: day(2), SentimentAvg: 0.4}}
	future := append(base, model.SentimentDaily{Ticker: "X", Date: day(4), SentimentAvg: -1})

	a := Smooth(base, dates, []string{"X"}, 2).Series("X")
	b := Smooth(future, dates, []string{"X"}, 2).Series("X")
	assert.Equal(t, a[1:3], b[1:3])
	assert.NotEqual(t, a[3], b[3])
}
