package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewParsesLevel(t *testing.T) {
	logger := New("debug", "json")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %s", logger.GetLevel())
	}

	fallback := New("not-a-level", "json")
	if fallback.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info fallback, got %s", fallback.GetLevel())
	}
}

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")
	logger.Warn().Str("ticker", "AAPL").Msg("skipped")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["ticker"] != "AAPL" {
		t.Errorf("Expected ticker field AAPL, got %v", entry["ticker"])
	}
	if entry["level"] != "warn" {
		t.Errorf("Expected level warn, got %v", entry["level"])
	}
}

func TestThrottleLimitsPerKey(t *testing.T) {
	th := NewThrottle(time.Hour, 2)

	if !th.Allow("AAPL") || !th.Allow("AAPL") {
		t.Fatal("Burst messages should be allowed")
	}
	if th.Allow("AAPL") {
		t.Error("Third message within the interval should be throttled")
	}
	if !th.Allow("SPY") {
		t.Error("Keys must be throttled independently")
	}
	if got := th.Dropped("AAPL"); got != 1 {
		t.Errorf("Expected 1 dropped message, got %d", got)
	}
	if got := th.Dropped("SPY"); got != 0 {
		t.Errorf("Expected 0 dropped messages for SPY, got %d", got)
	}
}
