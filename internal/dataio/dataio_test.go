package dataio

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphafusion/pkg/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadPrices(t *testing.T) {
	path := writeFile(t, "prices.csv", `date,ticker,open,high,low,close
2024-01-02,AAPL,185.1,186.2,183.9,185.6
2024-01-02,BTC-USD,,45500,44000,45000
2024-01-03,AAPL,184,185,182,
not-a-date,AAPL,1,1,1,1
2024-01-03 00:00:00,BTC-USD,45000,46000,44800,45900
`)

	bars, skipped, err := ReadPrices(path)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, bars, 3)

	assert.Equal(t, "AAPL", bars[0].Ticker)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 185.6, bars[0].Close)
	assert.Equal(t, 45000.0, bars[1].Open, "missing open falls back to close")
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[2].Date)
}

func TestReadPricesMissingInputs(t *testing.T) {
	_, _, err := ReadPrices(filepath.Join(t.TempDir(), "absent.csv"))
	assert.True(t, model.IsConfigurationError(err))

	path := writeFile(t, "prices.csv", "date,ticker,open,close\n2024-01-02,AAPL,1,1\n")
	_, _, err = ReadPrices(path)
	require.True(t, model.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "high, low")

	path = writeFile(t, "empty.csv", "")
	_, _, err = ReadPrices(path)
	assert.True(t, model.IsConfigurationError(err))
}

func TestReadNews(t *testing.T) {
	path := writeFile(t, "news.csv", `date,ticker,title,sentiment_score
2024-01-02T14:30:00Z,AAPL,"Record quarter, guidance raised",0.8
2024-01-02 09:00:00,AAPL,Supplier issue,-0.2
2024-01-03,TSLA,No score,
yesterday,TSLA,Bad date,0.1
`)

	items, skipped, err := ReadNews(path)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, items, 3)
	assert.Equal(t, 0.8, items[0].SentimentScore)
	assert.Equal(t, 14, items[0].Timestamp.Hour())
	assert.True(t, math.IsNaN(items[2].SentimentScore))

	_, _, err = ReadNews(writeFile(t, "bad.csv", "date,ticker\n"))
	assert.True(t, model.IsConfigurationError(err))
}

func TestFeaturesRoundTripIsExact(t *testing.T) {
	rows := []model.FeatureRow{{
		Ticker: "AAPL", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Close: 179.66, Returns: 0.1 + 0.2, LogReturns: math.Log(1.0123), Volatility21d: 0.2345678901234,
		EMAFast: 181.0000001, EMASlow: 178.5, RSI: 100, ATR: 2.75, TrendStrength: -1e-9,
	}}
	path := filepath.Join(t.TempDir(), "out", "features.csv")
	require.NoError(t, WriteFeatures(path, rows))

	got, err := ReadFeatures(path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, WriteFeatures(path, got))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSentimentRoundTrip(t *testing.T) {
	daily := []model.SentimentDaily{
		{Ticker: "AAPL", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), SentimentAvg: 0.3, NewsCount: 2},
	}
	path := filepath.Join(t.TempDir(), "sentiment.csv")
	require.NoError(t, WriteSentiment(path, daily))

	got, err := ReadSentiment(path)
	require.NoError(t, err)
	assert.Equal(t, daily, got)

	bad := writeFile(t, "bad_sentiment.csv", "ticker,date,sentiment_avg,news_count\nAAPL,2024-01-02,0.3,two\n")
	_, err = ReadSentiment(bad)
	require.True(t, model.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "row 2")
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "signals.json")
	in := []model.SignalRecord{{Ticker: "AAPL", Date: "2024-01-02", AlphaScore: 0.01234, Signal: "WAIT"}}
	require.NoError(t, WriteJSON(path, in))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []model.SignalRecord
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
