// Package explain maps score signs onto a signal status and a short narrative.
package explain

import "fmt"

// Status is the published signal code
type Status string

const (
	ConfirmedBuy Status = "CONFIRMED_BUY"
	SentimentBuy Status = "SENTIMENT_BUY"
	TechnicalBuy Status = "TECHNICAL_BUY"
	NewsVeto     Status = "NEWS_VETO"
	Wait         Status = "WAIT"
	Neutral      Status = "NEUTRAL"
)

// Scores are the only inputs of the decision table
type Scores struct {
	Tech      float64
	Sentiment float64
	Alpha     float64
}

type rule struct {
	status Status
	match  func(s Scores) bool
	text   string // %s is the ticker
}

// rules are evaluated in order, first match wins. Cases overlap:
// TechnicalBuy must stay after the two sentiment-backed buys.
var rules = []rule{
	{
		status: ConfirmedBuy,
		match:  func(s Scores) bool { return s.Alpha > 0 && s.Tech > 0 && s.Sentiment > 0 },
		text:   "%s: the uptrend is backed by positive news flow. Trend and fundamentals agree.",
	},
	{
		status: SentimentBuy,
		match:  func(s Scores) bool { return s.Alpha > 0 && s.Tech <= 0 && s.Sentiment > 0 },
		text:   "%s: price has not moved yet but news flow is clearly positive. Early entry ahead of the trend.",
	},
	{
		status: TechnicalBuy,
		match:  func(s Scores) bool { return s.Alpha > 0 && s.Tech > 0 },
		text:   "%s: steady uptrend with quiet news. Momentum alone carries the signal.",
	},
	{
		status: NewsVeto,
		match:  func(s Scores) bool { return s.Alpha <= 0 && s.Tech > 0 && s.Sentiment < 0 },
		text:   "%s: the chart looks constructive but negative news outweighs it. Staying out.",
	},
	{
		status: Wait,
		match:  func(s Scores) bool { return s.Alpha < 0 },
		text:   "%s: neither trend nor news gives a clear picture. Preserving capital until a signal appears.",
	},
}

// Classify returns the status of the first matching case, Neutral if none
func Classify(s Scores) Status {
	for _, r := range rules {
		if r.match(s) {
			return r.status
		}
	}
	return Neutral
}

// Narrate returns the status and narrative for ticker
func Narrate(ticker string, s Scores) (Status, string) {
	for _, r := range rules {
		if r.match(s) {
			return r.status, fmt.Sprintf(r.text, ticker)
		}
	}
	return Neutral, fmt.Sprintf("%s: no directional conviction.", ticker)
}
