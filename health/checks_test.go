package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leonardsellem/n8n-mcp-server-sub013/cache"
	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
	"github.com/leonardsellem/n8n-mcp-server-sub013/resilience"
)

type stubBreakers struct {
	stats resilience.ErrorStats
}

func (s stubBreakers) Stats() resilience.ErrorStats { return s.stats }

func breakers(states ...resilience.State) stubBreakers {
	snaps := make(map[string]resilience.BreakerSnapshot, len(states))
	for i, st := range states {
		snaps["n8n.op"+string(rune('a'+i))] = resilience.BreakerSnapshot{State: st}
	}
	return stubBreakers{stats: resilience.ErrorStats{
		Errors:          map[string]int{"n8n.opa": 3},
		CircuitBreakers: snaps,
	}}
}

func TestBreakerChecker(t *testing.T) {
	tests := []struct {
		name   string
		states []resilience.State
		want   Status
	}{
		{"no breakers", nil, StatusHealthy},
		{"all closed", []resilience.State{resilience.StateClosed, resilience.StateClosed}, StatusHealthy},
		{"half open", []resilience.State{resilience.StateClosed, resilience.StateHalfOpen}, StatusDegraded},
		{"some open", []resilience.State{resilience.StateOpen, resilience.StateClosed}, StatusDegraded},
		{"all open", []resilience.State{resilience.StateOpen, resilience.StateOpen}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewBreakerChecker(breakers(tt.states...))
			got := c.Check(context.Background())
			if got.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", got.Status, tt.want, got.Message)
			}
			if _, ok := got.Details["breakers"]; !ok {
				t.Error("Details missing breakers")
			}
		})
	}
}

func TestBreakerChecker_AllOpenError(t *testing.T) {
	got := NewBreakerChecker(breakers(resilience.StateOpen)).Check(context.Background())
	if !errors.Is(got.Error, fault.ErrCircuitOpen) {
		t.Errorf("Error = %v, want circuit open", got.Error)
	}
}

func TestBreakerChecker_RealHandler(t *testing.T) {
	h := resilience.NewHandler(resilience.WithBreakerConfig(resilience.CircuitBreakerConfig{FailureThreshold: 1}))
	cfg := resilience.OperationConfig{OperationName: "n8n.getWorkflow", MaxRetries: 1}
	_ = h.Execute(context.Background(), cfg, func(context.Context) error {
		return fault.NewUpstreamError("bad gateway", nil, nil)
	})

	c := NewBreakerChecker(h)
	if got := c.Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", got.Status)
	}

	h.ResetCircuitBreakers()
	if got := c.Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("Status after reset = %v, want healthy", got.Status)
	}
}

func TestCacheChecker(t *testing.T) {
	stats := []cache.Stats{
		{Name: "workflows", Size: 10, MaxSize: 500, Hits: 90, Misses: 10, HitRate: 0.9},
		{Name: "executions", Size: 200, MaxSize: 200, Hits: 5, Misses: 195, HitRate: 0.025},
	}
	c := NewCacheChecker(func() []cache.Stats { return stats }, CacheCheckerConfig{})

	got := c.Check(context.Background())
	if got.Status != StatusDegraded {
		t.Fatalf("Status = %v, want degraded", got.Status)
	}
	if !strings.Contains(got.Message, "executions") {
		t.Errorf("Message = %q, want it to name executions", got.Message)
	}
	if len(got.Details) != 2 {
		t.Errorf("Details = %v, want 2 caches", got.Details)
	}

	// Too few lookups to judge.
	stats[1].Hits, stats[1].Misses = 1, 9
	if got := c.Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", got.Status)
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestUpstreamChecker(t *testing.T) {
	ok := NewUpstreamChecker("n8n", pingFunc(func(context.Context) error { return nil }), 0)
	if ok.Name() != "n8n" {
		t.Errorf("Name = %q", ok.Name())
	}
	if got := ok.Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", got.Status)
	}

	denied := NewUpstreamChecker("n8n", pingFunc(func(context.Context) error {
		return fault.NewSecurityError("unauthorized", nil)
	}), 0)
	got := denied.Check(context.Background())
	if got.Status != StatusUnhealthy {
		t.Fatalf("Status = %v, want unhealthy", got.Status)
	}
	if got.Details["error_code"] != fault.CodeSecurity {
		t.Errorf("error_code = %v, want %s", got.Details["error_code"], fault.CodeSecurity)
	}

	slow := NewUpstreamChecker("n8n", pingFunc(func(context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}), time.Millisecond)
	if got := slow.Check(context.Background()); got.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", got.Status)
	}
}

func TestMemoryChecker(t *testing.T) {
	c := NewMemoryChecker(MemoryCheckerConfig{})
	if c.config.WarningThreshold != 0.8 || c.config.CriticalThreshold != 0.95 {
		t.Errorf("defaults = %+v", c.config)
	}
	if got := c.Check(context.Background()); got.Status == StatusUnhealthy {
		t.Errorf("Status = %v with no limit", got.Status)
	}

	tiny := NewMemoryChecker(MemoryCheckerConfig{Limit: 1})
	if got := tiny.Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy over a 1 byte limit", got.Status)
	}

	inverted := NewMemoryChecker(MemoryCheckerConfig{WarningThreshold: 0.9, CriticalThreshold: 0.5})
	if inverted.config.CriticalThreshold <= inverted.config.WarningThreshold {
		t.Errorf("critical %v not above warning %v", inverted.config.CriticalThreshold, inverted.config.WarningThreshold)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := c.Check(ctx); got.Status != StatusUnhealthy {
		t.Errorf("Status = %v on cancelled context", got.Status)
	}
}
