// Package dataio reads the tabular inputs and writes stage outputs.
package dataio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"alphafusion/pkg/model"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
}

// ParseDate accepts a calendar date or a timestamp
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// table is a header-indexed CSV file
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(path, stage string, required ...string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.ConfigurationError{Stage: stage, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%s is empty", path)
		}
		return nil, &model.ConfigurationError{Stage: stage, Err: err}
	}

	t := &table{columns: make(map[string]int, len(header))}
	for i, name := range header {
		t.columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &model.ConfigurationError{
			Stage: stage,
			Err:   fmt.Errorf("%s: missing required columns %s", path, strings.Join(missing, ", ")),
		}
	}

	t.rows, err = r.ReadAll()
	if err != nil {
		return nil, &model.ConfigurationError{Stage: stage, Err: fmt.Errorf("reading %s: %w", path, err)}
	}
	return t, nil
}

func (t *table) get(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// float parses a cell; empty or malformed cells are NaN
func (t *table) float(row []string, col string) float64 {
	v, err := strconv.ParseFloat(t.get(row, col), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ReadPrices loads price bars. Rows with a blank ticker, a bad date or a
// missing close/high/low are skipped and counted. A missing open falls back
// to the close.
func ReadPrices(path string) (bars []model.PriceBar, skipped int, err error) {
	t, err := readTable(path, "prices", "date", "ticker", "close", "high", "low")
	if err != nil {
		return nil, 0, err
	}

	bars = make([]model.PriceBar, 0, len(t.rows))
	for _, row := range t.rows {
		date, err := ParseDate(t.get(row, "date"))
		ticker := t.get(row, "ticker")
		if err != nil || ticker == "" {
			skipped++
			continue
		}
		b := model.PriceBar{
			Ticker: ticker,
			Date:   model.DateOnly(date),
			Open:   t.float(row, "open"),
			High:   t.float(row, "high"),
			Low:    t.float(row, "low"),
			Close:  t.float(row, "close"),
		}
		if math.IsNaN(b.Close) || math.IsNaN(b.High) || math.IsNaN(b.Low) {
			skipped++
			continue
		}
		if math.IsNaN(b.Open) {
			b.Open = b.Close
		}
		bars = append(bars, b)
	}
	return bars, skipped, nil
}

// ReadNews loads scored news items. Rows with a bad date are skipped and
// counted; unparseable scores are kept as NaN for the aggregator to drop.
func ReadNews(path string) (items []model.NewsItem, skipped int, err error) {
	t, err := readTable(path, "sentiment", "date", "ticker", "sentiment_score")
	if err != nil {
		return nil, 0, err
	}

	items = make([]model.NewsItem, 0, len(t.rows))
	for _, row := range t.rows {
		ts, err := ParseDate(t.get(row, "date"))
		if err != nil {
			skipped++
			continue
		}
		items = append(items, model.NewsItem{
			Ticker:         t.get(row, "ticker"),
			Timestamp:      ts,
			SentimentScore: t.float(row, "sentiment_score"),
		})
	}
	return items, skipped, nil
}

var featureHeader = []string{
	"ticker", "date", "close", "returns", "log_returns", "volatility_21d",
	"ema_fast", "ema_slow", "rsi", "atr", "trend_strength",
}

// ReadFeatures loads rows written by WriteFeatures
func ReadFeatures(path string) ([]model.FeatureRow, error) {
	t, err := readTable(path, "features", featureHeader...)
	if err != nil {
		return nil, err
	}

	rows := make([]model.FeatureRow, 0, len(t.rows))
	for i, row := range t.rows {
		date, err := ParseDate(t.get(row, "date"))
		if err != nil {
			return nil, &model.ConfigurationError{Stage: "features", Err: fmt.Errorf("%s row %d: %w", path, i+2, err)}
		}
		rows = append(rows, model.FeatureRow{
			Ticker:        t.get(row, "ticker"),
			Date:          model.DateOnly(date),
			Close:         t.float(row, "close"),
			Returns:       t.float(row, "returns"),
			LogReturns:    t.float(row, "log_returns"),
			Volatility21d: t.float(row, "volatility_21d"),
			EMAFast:       t.float(row, "ema_fast"),
			EMASlow:       t.float(row, "ema_slow"),
			RSI:           t.float(row, "rsi"),
			ATR:           t.float(row, "atr"),
			TrendStrength: t.float(row, "trend_strength"),
		})
	}
	return rows, nil
}

// WriteFeatures writes feature rows in the given order
func WriteFeatures(path string, rows []model.FeatureRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, featureHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.Ticker, r.Date.Format("2006-01-02"),
			formatFloat(r.Close), formatFloat(r.Returns), formatFloat(r.LogReturns), formatFloat(r.Volatility21d),
			formatFloat(r.EMAFast), formatFloat(r.EMASlow), formatFloat(r.RSI), formatFloat(r.ATR), formatFloat(r.TrendStrength),
		})
	}
	return writeCSV(path, records)
}

var sentimentHeader = []string{"ticker", "date", "sentiment_avg", "news_count"}

// ReadSentiment loads rows written by WriteSentiment
func ReadSentiment(path string) ([]model.SentimentDaily, error) {
	t, err := readTable(path, "sentiment", sentimentHeader...)
	if err != nil {
		return nil, err
	}

	daily := make([]model.SentimentDaily, 0, len(t.rows))
	for i, row := range t.rows {
		date, err := ParseDate(t.get(row, "date"))
		if err != nil {
			return nil, &model.ConfigurationError{Stage: "sentiment", Err: fmt.Errorf("%s row %d: %w", path, i+2, err)}
		}
		count, err := strconv.Atoi(t.get(row, "news_count"))
		if err != nil {
			return nil, &model.ConfigurationError{Stage: "sentiment", Err: fmt.Errorf("%s row %d: bad news_count: %w", path, i+2, err)}
		}
		daily = append(daily, model.SentimentDaily{
			Ticker:       t.get(row, "ticker"),
			Date:         model.DateOnly(date),
			SentimentAvg: t.float(row, "sentiment_avg"),
			NewsCount:    count,
		})
	}
	return daily, nil
}

// WriteSentiment writes daily sentiment aggregates
func WriteSentiment(path string, daily []model.SentimentDaily) error {
	records := make([][]string, 0, len(daily)+1)
	records = append(records, sentimentHeader)
	for _, d := range daily {
		records = append(records, []string{
			d.Ticker, d.Date.Format("2006-01-02"), formatFloat(d.SentimentAvg), strconv.Itoa(d.NewsCount),
		})
	}
	return writeCSV(path, records)
}

// formatFloat uses the shortest representation that parses back exactly
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(path string, records [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	return file.Close()
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("ensure dir: %w", err)
		}
	}
	return nil
}
