package health

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/leonardsellem/n8n-mcp-server-sub013/cache"
	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
	"github.com/leonardsellem/n8n-mcp-server-sub013/resilience"
)

// BreakerSource exposes circuit breaker state. *resilience.Handler
// implements it.
type BreakerSource interface {
	Stats() resilience.ErrorStats
}

// BreakerChecker reports open circuit breakers. It is degraded while some
// breakers are open or half-open and unhealthy when every tracked breaker
// is open.
type BreakerChecker struct {
	source BreakerSource
}

// NewBreakerChecker creates a BreakerChecker.
func NewBreakerChecker(source BreakerSource) *BreakerChecker {
	return &BreakerChecker{source: source}
}

// Name returns "circuit_breakers".
func (c *BreakerChecker) Name() string { return "circuit_breakers" }

// Check inspects every breaker.
func (c *BreakerChecker) Check(context.Context) Result {
	stats := c.source.Stats()

	states := make(map[string]any, len(stats.CircuitBreakers))
	var open, halfOpen []string
	for name, snap := range stats.CircuitBreakers {
		states[name] = snap.State.String()
		switch snap.State {
		case resilience.StateOpen:
			open = append(open, name)
		case resilience.StateHalfOpen:
			halfOpen = append(halfOpen, name)
		}
	}
	sort.Strings(open)
	details := map[string]any{
		"breakers": states,
		"errors":   stats.Errors,
	}

	total := len(stats.CircuitBreakers)
	switch {
	case total > 0 && len(open) == total:
		return Unhealthy(fmt.Sprintf("all %d circuit breakers open", total), fault.ErrCircuitOpen).WithDetails(details)
	case len(open) > 0:
		return Degraded(fmt.Sprintf("circuit breakers open: %v", open)).WithDetails(details)
	case len(halfOpen) > 0:
		return Degraded(fmt.Sprintf("%d circuit breakers half-open", len(halfOpen))).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("%d circuit breakers closed", total)).WithDetails(details)
	}
}

// CacheCheckerConfig configures a CacheChecker.
type CacheCheckerConfig struct {
	// MinHitRate below which a full cache counts as thrashing.
	// Default: 0.1
	MinHitRate float64
	// MinLookups before the hit rate is judged. Default: 100
	MinLookups int64
}

// CacheChecker reports cache statistics. A cache that is full and rarely
// hit is degraded: it evicts entries before they are reused.
type CacheChecker struct {
	stats  func() []cache.Stats
	config CacheCheckerConfig
}

// NewCacheChecker creates a CacheChecker over stats, which is typically
// n8n.Client.CacheStats.
func NewCacheChecker(stats func() []cache.Stats, config CacheCheckerConfig) *CacheChecker {
	if config.MinHitRate <= 0 {
		config.MinHitRate = 0.1
	}
	if config.MinLookups <= 0 {
		config.MinLookups = 100
	}
	return &CacheChecker{stats: stats, config: config}
}

// Name returns "caches".
func (c *CacheChecker) Name() string { return "caches" }

// Check inspects every cache.
func (c *CacheChecker) Check(context.Context) Result {
	details := make(map[string]any)
	var thrashing []string
	for _, s := range c.stats() {
		details[s.Name] = map[string]any{
			"size":      s.Size,
			"maxSize":   s.MaxSize,
			"hitRate":   s.HitRate,
			"evictions": s.Evictions,
		}
		full := s.MaxSize > 0 && s.Size >= s.MaxSize
		if full && s.Hits+s.Misses >= c.config.MinLookups && s.HitRate < c.config.MinHitRate {
			thrashing = append(thrashing, s.Name)
		}
	}
	if len(thrashing) > 0 {
		return Degraded(fmt.Sprintf("caches full with low hit rate: %v", thrashing)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d caches", len(details))).WithDetails(details)
}

// Pinger is implemented by n8n.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpstreamChecker pings n8n. It is degraded when the ping is slower than
// SlowThreshold.
type UpstreamChecker struct {
	name          string
	pinger        Pinger
	slowThreshold time.Duration
}

// NewUpstreamChecker creates an UpstreamChecker. A zero slowThreshold
// defaults to 2 seconds.
func NewUpstreamChecker(name string, pinger Pinger, slowThreshold time.Duration) *UpstreamChecker {
	if slowThreshold <= 0 {
		slowThreshold = 2 * time.Second
	}
	return &UpstreamChecker{name: name, pinger: pinger, slowThreshold: slowThreshold}
}

// Name returns the upstream name.
func (c *UpstreamChecker) Name() string { return c.name }

// Check pings the upstream once.
func (c *UpstreamChecker) Check(ctx context.Context) Result {
	start := time.Now()
	err := c.pinger.Ping(ctx)
	latency := time.Since(start)
	details := map[string]any{"latency_ms": latency.Milliseconds()}

	if err != nil {
		if code := fault.CodeOf(err); code != "" {
			details["error_code"] = code
		}
		return Unhealthy(fmt.Sprintf("%s unreachable", c.name), err).WithDetails(details)
	}
	if latency > c.slowThreshold {
		return Degraded(fmt.Sprintf("%s slow: %s", c.name, latency.Round(time.Millisecond))).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%s reachable", c.name)).WithDetails(details)
}
