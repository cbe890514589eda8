package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"alphafusion/internal/alpha"
	"alphafusion/internal/config"
	"alphafusion/internal/signal"
	"alphafusion/pkg/model"
)

// Result contains the simulation of one ticker under one parameterization
type Result struct {
	Ticker       string  `json:"ticker"`
	Period       string  `json:"period"`
	ImpactWeight float64 `json:"impact_weight"`

	// Summary
	InitialCash   float64  `json:"initial_cash"`
	FinalEquity   float64  `json:"final_equity"`
	TotalReturn   float64  `json:"total_return"`
	SharpeRatio   *float64 `json:"sharpe_ratio"`
	WinRate       *float64 `json:"win_rate"`
	MaxDrawdown   float64  `json:"max_drawdown"` // fraction of peak equity
	TradeCount    int      `json:"trade_count"`  // including a trade still open at the end
	ClosedTrades  int      `json:"closed_trades"`
	WinningTrades int      `json:"winning_trades"`
	FeesPaid      float64  `json:"fees_paid"`

	// Metrics that could not be computed
	MetricErrors []string `json:"metric_errors,omitempty"`

	// Individual trades
	Trades []model.Trade `json:"trades"`

	// Equity curve; EquityCurve[0] is the initial cash, EquityCurve[i+1] the close of Dates[i]
	Dates       []time.Time `json:"dates"`
	EquityCurve []float64   `json:"equity_curve"`
}

// ParameterResult condenses the result into a sweep cell
func (r *Result) ParameterResult() model.ParameterResult {
	return model.ParameterResult{
		ImpactWeight: r.ImpactWeight,
		Ticker:       r.Ticker,
		TotalReturn:  r.TotalReturn,
		SharpeRatio:  r.SharpeRatio,
		WinRate:      r.WinRate,
		TradeCount:   r.TradeCount,
	}
}

// Simulator replays decluttered events against closing prices.
// Each ticker trades its own all-in/all-out cash account.
type Simulator struct {
	config        config.BacktestConfig
	annualization int
}

// NewSimulator creates a new simulator
func NewSimulator(cfg config.BacktestConfig, annualization int) *Simulator {
	if annualization < 1 {
		annualization = 252
	}
	return &Simulator{config: cfg, annualization: annualization}
}

// Run simulates one ticker. records must be date-ordered and belong to one ticker.
// A ticker without any defined alpha yields ErrNoData.
func (s *Simulator) Run(records []model.AlphaRecord, events []model.Event) (*Result, error) {
	if len(records) == 0 || !anyDefined(records) {
		return nil, model.ErrNoData
	}
	ticker := records[0].Ticker

	byDate := make(map[time.Time]model.EventType, len(events))
	for _, ev := range events {
		if ev.Ticker != ticker {
			return nil, fmt.Errorf("event for %s replayed against %s", ev.Ticker, ticker)
		}
		byDate[model.DateOnly(ev.Date)] = ev.Type
	}

	result := &Result{
		Ticker:      ticker,
		Period:      records[0].Date.Format("2006-01-02") + " ~ " + records[len(records)-1].Date.Format("2006-01-02"),
		InitialCash: s.config.InitialCash,
		Trades:      make([]model.Trade, 0),
		Dates:       make([]time.Time, 0, len(records)),
		EquityCurve: make([]float64, 0, len(records)+1),
	}

	cash := s.config.InitialCash
	units := 0.0
	var open *model.Trade
	result.EquityCurve = append(result.EquityCurve, cash)

	matched := 0
	for _, rec := range records {
		if ev, ok := byDate[model.DateOnly(rec.Date)]; ok {
			matched++
			switch {
			case ev == model.EventEnter && open == nil:
				entryPrice := rec.Close * (1 + s.config.Slippage) // slippage worsens entry
				units = cash / (entryPrice * (1 + s.config.Fee))
				result.FeesPaid += units * entryPrice * s.config.Fee
				open = &model.Trade{
					Ticker:     ticker,
					EntryDate:  rec.Date,
					EntryPrice: entryPrice,
					Units:      units,
					CostBasis:  cash,
					Open:       true,
				}
				cash = 0
			case ev == model.EventExit && open != nil:
				exitPrice := rec.Close * (1 - s.config.Slippage) // slippage worsens exit
				gross := units * exitPrice
				fee := gross * s.config.Fee
				result.FeesPaid += fee
				cash = gross - fee

				exitDate := rec.Date
				open.ExitDate = &exitDate
				open.ExitPrice = exitPrice
				open.Proceeds = cash
				open.Open = false
				result.Trades = append(result.Trades, *open)
				open = nil
				units = 0
			}
		}

		result.Dates = append(result.Dates, rec.Date)
		result.EquityCurve = append(result.EquityCurve, cash+units*rec.Close)
	}

	if matched != len(byDate) {
		return nil, fmt.Errorf("%d events fall outside the %s series", len(byDate)-matched, ticker)
	}
	if open != nil {
		result.Trades = append(result.Trades, *open)
	}

	s.calculateStats(result)
	return result, nil
}

// Chain runs fusion, signal generation and simulation for one ticker at one weight.
// base must come from alpha.Prepare and is not modified.
func (s *Simulator) Chain(base []model.AlphaRecord, impactWeight float64) (*Result, error) {
	records := alpha.Reweight(base, impactWeight)
	res, err := s.Run(records, signal.Generate(records))
	if err != nil {
		return nil, err
	}
	res.ImpactWeight = impactWeight
	return res, nil
}

func anyDefined(records []model.AlphaRecord) bool {
	for _, r := range records {
		if r.Defined() {
			return true
		}
	}
	return false
}

// calculateStats computes summary statistics from trades and the equity curve
func (s *Simulator) calculateStats(result *Result) {
	equity := result.EquityCurve
	result.FinalEquity = equity[len(equity)-1]
	result.TotalReturn = result.FinalEquity/equity[0] - 1
	result.TradeCount = len(result.Trades)

	for _, t := range result.Trades {
		if t.Open {
			continue
		}
		result.ClosedTrades++
		if t.NetReturn() > 0 {
			result.WinningTrades++
		}
	}
	if result.ClosedTrades > 0 {
		result.WinRate = model.Float(float64(result.WinningTrades) / float64(result.ClosedTrades))
	} else {
		result.MetricErrors = append(result.MetricErrors,
			(&model.ComputationError{Metric: "win_rate", Err: errors.New("no closed trades")}).Error())
	}

	// Max Drawdown
	peak := equity[0]
	var maxDD float64
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		dd := (peak - e) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	result.MaxDrawdown = maxDD

	sharpe, err := SharpeRatio(DailyReturns(equity), s.annualization)
	if err != nil {
		result.MetricErrors = append(result.MetricErrors, err.Error())
	}
	result.SharpeRatio = sharpe
}

// DailyReturns converts an equity curve into period returns
func DailyReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		out[i-1] = equity[i]/equity[i-1] - 1
	}
	return out
}

// SharpeRatio returns mean/stdev of returns, annualized.
// A zero or undefined deviation yields nil and a ComputationError.
func SharpeRatio(returns []float64, periodsPerYear int) (*float64, error) {
	std := stdDev(returns)
	if len(returns) < 2 || std == 0 || math.IsNaN(std) {
		return nil, &model.ComputationError{Metric: "sharpe_ratio", Err: errors.New("zero return variance")}
	}
	v := average(returns) / std * math.Sqrt(float64(periodsPerYear))
	return &v, nil
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := average(values)
	var sumSquares float64
	for _, v := range values {
		sumSquares += (v - avg) * (v - avg)
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
