package explain

import (
	"math"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		scores Scores
		want   Status
	}{
		{"trend and news agree", Scores{Tech: 0.02, Sentiment: 0.3, Alpha: 0.23}, ConfirmedBuy},
		{"news lifts a flat trend", Scores{Tech: -0.01, Sentiment: 0.2, Alpha: 0.13}, SentimentBuy},
		{"news lifts a zero trend", Scores{Tech: 0, Sentiment: 0.2, Alpha: 0.14}, SentimentBuy},
		{"trend with neutral news", Scores{Tech: 0.02, Sentiment: 0, Alpha: 0.02}, TechnicalBuy},
		{"trend survives bad news", Scores{Tech: 0.05, Sentiment: -0.01, Alpha: 0.043}, TechnicalBuy},
		{"bad news vetoes trend", Scores{Tech: 0.02, Sentiment: -0.3, Alpha: -0.19}, NewsVeto},
		{"veto at exactly zero alpha", Scores{Tech: 0.07, Sentiment: -0.1, Alpha: 0}, NewsVeto},
		{"everything negative", Scores{Tech: -0.02, Sentiment: -0.1, Alpha: -0.09}, Wait},
		{"negative trend and neutral news", Scores{Tech: -0.02, Sentiment: 0, Alpha: -0.02}, Wait},
		{"all zero", Scores{}, Neutral},
		{"undefined alpha", Scores{Tech: 0.01, Sentiment: math.NaN(), Alpha: math.NaN()}, Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.scores); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNarrate(t *testing.T) {
	status, text := Narrate("NVDA", Scores{Tech: 0.02, Sentiment: -0.3, Alpha: -0.19})
	if status != NewsVeto {
		t.Errorf("Expected %s, got %s", NewsVeto, status)
	}
	if !strings.HasPrefix(text, "NVDA: ") {
		t.Errorf("Expected narrative to name the ticker, got %q", text)
	}

	status, text = Narrate("BTC-USD", Scores{})
	if status != Neutral || !strings.Contains(text, "BTC-USD") {
		t.Errorf("Expected neutral narrative, got %s %q", status, text)
	}
}
