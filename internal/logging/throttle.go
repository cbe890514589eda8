package logging

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle rate-limits repeated diagnostics per key.
// A sweep evaluates each ticker once per grid weight, so a broken ticker
// would otherwise log the same warning for every weight.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    time.Duration
	burst    int
	dropped  map[string]int
}

// NewThrottle allows burst messages per key, then one per interval
func NewThrottle(every time.Duration, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		limiters: make(map[string]*rate.Limiter),
		dropped:  make(map[string]int),
		every:    every,
		burst:    burst,
	}
}

// Allow reports whether a message for key may be emitted now
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.every), t.burst)
		t.limiters[key] = l
	}
	if l.Allow() {
		return true
	}
	t.dropped[key]++
	return false
}

// Dropped returns how many messages were suppressed for key
func (t *Throttle) Dropped(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped[key]
}
