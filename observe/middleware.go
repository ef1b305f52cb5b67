package observe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
)

// ExecuteFunc is the signature of an MCP tool body once its arguments have
// been decoded.
type ExecuteFunc func(ctx context.Context, tool ToolMeta, input map[string]any) (any, error)

// Middleware wraps tool execution with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: every call gets a request ID unless one is already present.
//   - Errors: errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components become no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Wrap wraps fn with tracing, metrics and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, tool ToolMeta, input map[string]any) (any, error) {
		if RequestIDFromContext(ctx) == "" {
			ctx = WithRequestID(ctx, uuid.NewString())
		}

		ctx, span := m.tracer.StartSpan(ctx, tool)
		start := time.Now()

		result, err := fn(ctx, tool, input)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordToolCall(ctx, tool, duration, err)

		toolLogger := m.logger.WithTool(tool)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			if fe, ok := fault.As(err); ok {
				fields = append(fields, Field{Key: "error_code", Value: fe.Code()})
			}
			toolLogger.Error(ctx, "tool call failed", fields...)
		} else {
			toolLogger.Info(ctx, "tool call completed", fields...)
		}

		return result, err
	}
}

// Metrics returns the middleware's metrics recorder.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }
