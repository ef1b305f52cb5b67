package resilience

import (
	"sync"
	"time"
)

// ErrorStats is the serializable view returned by Handler.Stats.
type ErrorStats struct {
	Errors          map[string]int             `json:"errors"`
	CircuitBreakers map[string]BreakerSnapshot `json:"circuitBreakers"`
	WindowStart     time.Time                  `json:"windowStart"`
	// Bulkhead is nil when the handler has no bulkhead.
	Bulkhead *BulkheadMetrics `json:"bulkhead,omitempty"`
}

// errorCounts is a per-operation failure counter cleared wholesale on the
// first increment after the window elapses.
type errorCounts struct {
	clock  Clock
	window time.Duration

	mu          sync.Mutex
	counts      map[string]int
	windowStart time.Time
}

func newErrorCounts(clock Clock, window time.Duration) *errorCounts {
	return &errorCounts{
		clock:       clock,
		window:      window,
		counts:      make(map[string]int),
		windowStart: clock.Now(),
	}
}

func (c *errorCounts) increment(operation string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if now.Sub(c.windowStart) > c.window {
		c.counts = make(map[string]int)
		c.windowStart = now
	}
	c.counts[operation]++
}

func (c *errorCounts) snapshot() (map[string]int, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out, c.windowStart
}
