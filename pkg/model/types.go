package model

import (
	"math"
	"time"
)

// PriceBar represents one daily OHLC observation for a ticker
type PriceBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
}

// NewsItem is a single externally scored article
type NewsItem struct {
	Ticker         string    `json:"ticker"`
	Timestamp      time.Time `json:"timestamp"`
	SentimentScore float64   `json:"sentiment_score"` // [-1, 1]
}

// FeatureRow holds the technical features of one ticker on one date.
// Every emitted row is fully defined.
type FeatureRow struct {
	Ticker        string    `json:"ticker"`
	Date          time.Time `json:"date"`
	Close         float64   `json:"close"`
	Returns       float64   `json:"returns"`
	LogReturns    float64   `json:"log_returns"`
	Volatility21d float64   `json:"volatility_21d"`
	EMAFast       float64   `json:"ema_fast"`
	EMASlow       float64   `json:"ema_slow"`
	RSI           float64   `json:"rsi"`
	ATR           float64   `json:"atr"`
	TrendStrength float64   `json:"trend_strength"`
}

// SentimentDaily is the per-day news aggregate for a ticker
type SentimentDaily struct {
	Ticker       string    `json:"ticker"`
	Date         time.Time `json:"date"`
	SentimentAvg float64   `json:"sentiment_avg"`
	NewsCount    int       `json:"news_count"`
}

// AlphaRecord is the fused score of one ticker on one date.
// SentimentScore and AlphaScore are NaN while the smoothing window is warming up.
type AlphaRecord struct {
	Ticker         string    `json:"ticker"`
	Date           time.Time `json:"date"`
	Close          float64   `json:"close"`
	TechScore      float64   `json:"tech_score"`
	SentimentScore float64   `json:"sentiment_score"`
	AlphaScore     float64   `json:"alpha_score"`
}

// Defined reports whether the alpha score can take part in signal logic
func (r AlphaRecord) Defined() bool {
	return !math.IsNaN(r.AlphaScore) && !math.IsInf(r.AlphaScore, 0)
}

// PositionState is the per-ticker signal state
type PositionState string

const (
	StateFlat PositionState = "FLAT"
	StateLong PositionState = "LONG"
)

// EventType is a decluttered trading event
type EventType string

const (
	EventEnter EventType = "ENTER"
	EventExit  EventType = "EXIT"
)

// Event is one honored state transition
type Event struct {
	Date   time.Time `json:"date"`
	Ticker string    `json:"ticker"`
	Type   EventType `json:"event"`
}

// Trade represents a single round trip, possibly still open
type Trade struct {
	Ticker     string     `json:"ticker"`
	EntryDate  time.Time  `json:"entry_date"`
	EntryPrice float64    `json:"entry_price"`         // execution price incl. slippage
	ExitDate   *time.Time `json:"exit_date,omitempty"` // nil while open
	ExitPrice  float64    `json:"exit_price,omitempty"`
	Units      float64    `json:"units"`
	CostBasis  float64    `json:"cost_basis"` // cash spent incl. fee
	Proceeds   float64    `json:"proceeds,omitempty"`
	Open       bool       `json:"open"`
}

// NetReturn returns the fee- and slippage-adjusted return of a closed trade
func (t Trade) NetReturn() float64 {
	if t.Open || t.CostBasis == 0 {
		return 0
	}
	return t.Proceeds/t.CostBasis - 1
}

// ParameterResult is one cell of the sweep matrix.
// Sharpe and WinRate are nil when undefined.
type ParameterResult struct {
	ImpactWeight float64  `json:"impact_weight"`
	Ticker       string   `json:"ticker"`
	TotalReturn  float64  `json:"total_return"`
	SharpeRatio  *float64 `json:"sharpe_ratio"`
	WinRate      *float64 `json:"win_rate"`
	TradeCount   int      `json:"trade_count"`
}

// SignalRecord is one entry of the published signal feed
type SignalRecord struct {
	Ticker         string  `json:"ticker"`
	Date           string  `json:"date"`
	ClosePrice     float64 `json:"close_price"`
	TechScore      float64 `json:"tech_score"`
	SentimentScore float64 `json:"sentiment_score"`
	AlphaScore     float64 `json:"alpha_score"`
	Signal         string  `json:"signal"`
	Narrative      string  `json:"narrative"`
}

// DateOnly truncates a timestamp to its UTC calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Float returns a pointer to v, for optional metrics
func Float(v float64) *float64 {
	return &v
}
