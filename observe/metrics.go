package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
)

// Metrics records tool, operation, circuit and cache telemetry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordToolCall records an MCP tool call.
	RecordToolCall(ctx context.Context, meta ToolMeta, duration time.Duration, err error)

	// RecordAttempt records one attempt of a resilient operation.
	RecordAttempt(ctx context.Context, operation string, duration time.Duration, err error)

	// RecordCircuitTransition records a circuit breaker state change.
	RecordCircuitTransition(ctx context.Context, operation, from, to string)

	// RecordCacheLookup records a cache hit or miss.
	RecordCacheLookup(ctx context.Context, cache string, hit bool)
}

type metricsImpl struct {
	toolCalls          metric.Int64Counter
	toolErrors         metric.Int64Counter
	toolDuration       metric.Float64Histogram
	attempts           metric.Int64Counter
	failures           metric.Int64Counter
	attemptDuration    metric.Float64Histogram
	circuitTransitions metric.Int64Counter
	cacheRequests      metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.toolCalls, err = meter.Int64Counter("mcp.tool.calls",
		metric.WithDescription("Total number of MCP tool calls"),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	if m.toolErrors, err = meter.Int64Counter("mcp.tool.errors",
		metric.WithDescription("Total number of failed MCP tool calls"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.toolDuration, err = meter.Float64Histogram("mcp.tool.duration_ms",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.attempts, err = meter.Int64Counter("n8n.operation.attempts",
		metric.WithDescription("Attempts made by the error handler"),
		metric.WithUnit("{attempt}")); err != nil {
		return nil, err
	}
	if m.failures, err = meter.Int64Counter("n8n.operation.failures",
		metric.WithDescription("Failed attempts made by the error handler"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.attemptDuration, err = meter.Float64Histogram("n8n.operation.duration_ms",
		metric.WithDescription("Attempt duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.circuitTransitions, err = meter.Int64Counter("n8n.circuit.transitions",
		metric.WithDescription("Circuit breaker state changes"),
		metric.WithUnit("{transition}")); err != nil {
		return nil, err
	}
	if m.cacheRequests, err = meter.Int64Counter("n8n.cache.requests",
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordToolCall(ctx context.Context, meta ToolMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("tool.id", meta.ToolID()),
		attribute.String("tool.name", meta.Name),
	}
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("tool.namespace", meta.Namespace))
	}
	opt := metric.WithAttributes(attrs...)

	m.toolCalls.Add(ctx, 1, opt)
	if err != nil {
		m.toolErrors.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("error.code", codeOf(err)))...))
	}
	m.toolDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordAttempt(ctx context.Context, operation string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("operation", operation))
	m.attempts.Add(ctx, 1, opt)
	if err != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("error.code", codeOf(err)),
		))
	}
	m.attemptDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCircuitTransition(ctx context.Context, operation, from, to string) {
	m.circuitTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

func codeOf(err error) string {
	if code := fault.CodeOf(err); code != "" {
		return code
	}
	return "UNCLASSIFIED"
}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics { return noopMetrics{} }

type noopMetrics struct{}

func (noopMetrics) RecordToolCall(context.Context, ToolMeta, time.Duration, error) {}
func (noopMetrics) RecordAttempt(context.Context, string, time.Duration, error)    {}
func (noopMetrics) RecordCircuitTransition(context.Context, string, string, string) {}
func (noopMetrics) RecordCacheLookup(context.Context, string, bool)                {}
