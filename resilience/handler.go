package resilience

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
)

// OperationConfig configures one call to Handler.Execute.
type OperationConfig struct {
	// OperationName keys both the circuit breaker and the error statistics.
	// Required.
	OperationName string

	// MaxRetries is the total number of attempts.
	// Default: 3
	MaxRetries int

	// RetryDelay is the base of the exponential backoff.
	// Default: 1 second
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff.
	// Default: 30 seconds
	MaxRetryDelay time.Duration

	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration

	// CircuitBreakerDisabled skips the breaker for this call.
	CircuitBreakerDisabled bool

	// Context is merged into the error produced when the operation fails.
	Context map[string]any

	// IsRetryable decides whether a failed attempt is retried.
	// Default: DefaultIsRetryable
	IsRetryable func(error) bool

	// Jitter lengthens each backoff delay by up to 25%.
	Jitter bool

	// TripsBreaker decides whether a failed attempt counts against the
	// circuit breaker. It is still counted in the error statistics.
	// Default: DefaultTripsBreaker
	TripsBreaker func(error) bool
}

func (c OperationConfig) withDefaults() OperationConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 30 * time.Second
	}
	if c.IsRetryable == nil {
		c.IsRetryable = DefaultIsRetryable
	}
	if c.TripsBreaker == nil {
		c.TripsBreaker = DefaultTripsBreaker
	}
	return c
}

// Handler runs operations with circuit breaking, per-attempt timeouts,
// exponential backoff and error classification. It owns one circuit breaker
// per operation name and the per-operation error counts; share one Handler
// between callers that should see the same circuit state.
type Handler struct {
	clock         Clock
	logger        observe.Logger
	metrics       observe.Metrics
	tracer        trace.Tracer
	breakerConfig CircuitBreakerConfig
	limiter       *RateLimiter
	bulkhead      *Bulkhead
	statsWindow   time.Duration

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	counts   *errorCounts
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the clock used by breakers, backoff and statistics.
func WithClock(c Clock) Option { return func(h *Handler) { h.clock = c } }

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option { return func(h *Handler) { h.logger = l } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option { return func(h *Handler) { h.metrics = m } }

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option { return func(h *Handler) { h.tracer = t } }

// WithBreakerConfig sets the template for every breaker the handler creates.
// OnStateChange and Clock are owned by the handler and ignored here.
func WithBreakerConfig(c CircuitBreakerConfig) Option {
	return func(h *Handler) { h.breakerConfig = c }
}

// WithStatsWindow sets how long error counts accumulate before the next
// increment clears them. Default: 1 hour.
func WithStatsWindow(d time.Duration) Option { return func(h *Handler) { h.statsWindow = d } }

// WithRateLimiter gates every attempt on rl.
func WithRateLimiter(rl *RateLimiter) Option { return func(h *Handler) { h.limiter = rl } }

// WithBulkhead bounds concurrent attempts with b.
func WithBulkhead(b *Bulkhead) Option { return func(h *Handler) { h.bulkhead = b } }

// NewHandler creates a Handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		clock:       RealClock(),
		logger:      observe.NopLogger(),
		metrics:     observe.NoopMetrics(),
		tracer:      tracenoop.NewTracerProvider().Tracer("noop"),
		statsWindow: time.Hour,
		breakers:    make(map[string]*CircuitBreaker),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.counts = newErrorCounts(h.clock, h.statsWindow)
	return h
}

// Breaker returns the breaker for operation, creating it on first use.
func (h *Handler) Breaker(operation string) *CircuitBreaker {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cb, ok := h.breakers[operation]; ok {
		return cb
	}
	cfg := h.breakerConfig
	cfg.Clock = h.clock
	cfg.OnStateChange = func(from, to State) {
		ctx := context.Background()
		h.metrics.RecordCircuitTransition(ctx, operation, from.String(), to.String())
		fields := []observe.Field{
			observe.F("operation", operation),
			observe.F("from", from.String()),
			observe.F("to", to.String()),
		}
		if to == StateOpen {
			h.logger.Warn(ctx, "circuit breaker opened", fields...)
		} else {
			h.logger.Info(ctx, "circuit breaker state changed", fields...)
		}
	}
	cb := NewCircuitBreaker(cfg)
	h.breakers[operation] = cb
	return cb
}

// Execute runs op under cfg. See Do for the typed variant.
func (h *Handler) Execute(ctx context.Context, cfg OperationConfig, op func(context.Context) error) error {
	_, err := h.run(ctx, cfg, func(ctx context.Context) (any, error) {
		return nil, op(ctx)
	})
	return err
}

// Do runs op under cfg and returns its value.
//
// If the breaker for cfg.OperationName is open, Do fails immediately with a
// CIRCUIT_BREAKER_OPEN error. Otherwise op is attempted up to MaxRetries
// times with RetryDelay * 2^(n-1) between attempts. Every failed attempt is
// recorded on the breaker and in the error counts. The error returned after
// the last attempt is always a *fault.Error.
func Do[T any](ctx context.Context, h *Handler, cfg OperationConfig, op func(context.Context) (T, error)) (T, error) {
	var zero T
	out, err := h.run(ctx, cfg, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

func (h *Handler) run(ctx context.Context, cfg OperationConfig, op func(context.Context) (any, error)) (any, error) {
	if cfg.OperationName == "" {
		return nil, fault.NewValidationError("operationName is required", nil)
	}
	cfg = cfg.withDefaults()
	name := cfg.OperationName

	ctx, span := h.tracer.Start(ctx, "n8n.operation."+name,
		trace.WithAttributes(
			attribute.String("operation", name),
			attribute.Int("max_retries", cfg.MaxRetries),
		))
	defer span.End()

	var (
		breaker *CircuitBreaker
		trial   uint64
		settled bool
	)
	if !cfg.CircuitBreakerDisabled {
		breaker = h.Breaker(name)
		var open bool
		if open, trial = breaker.admit(); open {
			err := fault.NewCircuitBreakerOpenError(name, cfg.Context)
			h.logger.Warn(ctx, "circuit breaker rejected call", observe.F("operation", name))
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		// A half-open trial that never reached a verdict hands its slot back.
		defer func() {
			if !settled {
				breaker.releaseTrial(trial)
			}
		}()
	}

	backoff := Backoff{Base: cfg.RetryDelay, Max: cfg.MaxRetryDelay, Jitter: cfg.Jitter}
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := backoff.Delay(attempt - 1)
			h.logger.Warn(ctx, "retrying operation",
				observe.F("operation", name),
				observe.F("attempt", attempt),
				observe.F("delay_ms", delay.Milliseconds()),
				observe.F("error", lastErr.Error()),
			)
			if err := sleep(ctx, h.clock, delay); err != nil {
				break
			}
		}

		attempts++
		start := time.Now()
		result, err := h.attempt(ctx, name, cfg.Timeout, op)
		h.metrics.RecordAttempt(ctx, name, time.Since(start), err)

		if err == nil {
			if breaker != nil {
				breaker.RecordSuccess()
				settled = true
			}
			span.SetAttributes(attribute.Int("attempts", attempts))
			span.SetStatus(codes.Ok, "")
			return result, nil
		}

		lastErr = err
		if breaker != nil && !isAdmissionError(err) && cfg.TripsBreaker(err) {
			breaker.RecordFailure()
			settled = true
		}
		h.counts.increment(name)

		if !cfg.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}

	enhanced := Enhance(lastErr, name, cfg.Context)
	h.logger.Error(ctx, "operation failed",
		observe.F("operation", name),
		observe.F("attempts", attempts),
		observe.F("error_code", fault.CodeOf(enhanced)),
		observe.F("error", enhanced.Error()),
	)
	span.SetAttributes(attribute.Int("attempts", attempts))
	span.RecordError(enhanced)
	span.SetStatus(codes.Error, enhanced.Error())
	return nil, enhanced
}

// attempt runs op once behind the admission gates.
func (h *Handler) attempt(ctx context.Context, name string, timeout time.Duration, op func(context.Context) (any, error)) (any, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if h.bulkhead != nil {
		if err := h.bulkhead.Acquire(ctx); err != nil {
			return nil, err
		}
		defer h.bulkhead.Release()
	}
	return withTimeout(ctx, name, timeout, op)
}

// Stats returns the error counts of the current window and a snapshot of
// every breaker.
func (h *Handler) Stats() ErrorStats {
	counts, windowStart := h.counts.snapshot()

	h.mu.Lock()
	breakers := make(map[string]*CircuitBreaker, len(h.breakers))
	for name, cb := range h.breakers {
		breakers[name] = cb
	}
	h.mu.Unlock()

	snaps := make(map[string]BreakerSnapshot, len(breakers))
	for name, cb := range breakers {
		snaps[name] = cb.Snapshot()
	}

	stats := ErrorStats{
		Errors:          counts,
		CircuitBreakers: snaps,
		WindowStart:     windowStart,
	}
	if h.bulkhead != nil {
		m := h.bulkhead.Metrics()
		stats.Bulkhead = &m
	}
	return stats
}

// ResetCircuitBreakers returns every tracked breaker to CLOSED with no
// failures.
func (h *Handler) ResetCircuitBreakers() {
	h.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(h.breakers))
	for _, cb := range h.breakers {
		breakers = append(breakers, cb)
	}
	h.mu.Unlock()

	for _, cb := range breakers {
		cb.Reset()
	}
}

// Operations returns the names of all tracked breakers, sorted.
func (h *Handler) Operations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.breakers))
	for name := range h.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
