package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/leonardsellem/n8n-mcp-server-sub013/cache"
	"github.com/leonardsellem/n8n-mcp-server-sub013/resilience"
)

// LivenessHandler answers 200 while the process serves HTTP.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// statusCode maps a status to an HTTP code. Degraded is still served.
func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// ReadinessHandler runs every check and answers OK, DEGRADED or UNHEALTHY.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := OverallStatus(agg.CheckAll(ctx))

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(statusCode(status))
		switch status {
		case StatusHealthy:
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// HealthResponse is the JSON body of the detailed health endpoint.
type HealthResponse struct {
	Status    Status                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is one check in a HealthResponse.
type CheckResponse struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func checkResponse(r Result) CheckResponse {
	out := CheckResponse{
		Status:   r.Status,
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return out
}

// DetailedHandler runs every check and returns a HealthResponse. The
// query parameter "check" restricts it to one checker.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		var results map[string]Result
		if name := r.URL.Query().Get("check"); name != "" {
			result, err := agg.Check(ctx, name)
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
			results = map[string]Result{name: result}
		} else {
			results = agg.CheckAll(ctx)
		}

		status := OverallStatus(results)
		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(results)),
		}
		for name, result := range results {
			response.Checks[name] = checkResponse(result)
		}
		writeJSON(w, statusCode(status), response)
	}
}

// StatsResponse is the JSON body of the stats endpoint.
type StatsResponse struct {
	Errors          map[string]int                        `json:"errors"`
	CircuitBreakers map[string]resilience.BreakerSnapshot `json:"circuitBreakers"`
	WindowStart     time.Time                             `json:"windowStart"`
	Caches          []cache.Stats                         `json:"caches"`
	Bulkhead        *resilience.BulkheadMetrics           `json:"bulkhead,omitempty"`
}

// StatsHandler serves error statistics, breaker snapshots and cache
// statistics. caches may be nil.
func StatsHandler(breakers BreakerSource, caches func() []cache.Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		stats := breakers.Stats()
		response := StatsResponse{
			Errors:          stats.Errors,
			CircuitBreakers: stats.CircuitBreakers,
			WindowStart:     stats.WindowStart,
			Caches:          []cache.Stats{},
			Bulkhead:        stats.Bulkhead,
		}
		if caches != nil {
			response.Caches = caches()
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// MuxConfig configures NewMux.
type MuxConfig struct {
	Aggregator *Aggregator
	Breakers   BreakerSource
	Caches     func() []cache.Stats
	// Metrics is served at /metrics when set.
	Metrics http.Handler
	// Protect wraps every route except /healthz, typically with
	// authentication. Nil leaves routes open.
	Protect func(http.Handler) http.Handler
}

// NewMux returns the ops HTTP handler: /healthz, /readyz, /health, /stats
// and optionally /metrics, traced with otelhttp.
func NewMux(cfg MuxConfig) http.Handler {
	protect := cfg.Protect
	if protect == nil {
		protect = func(h http.Handler) http.Handler { return h }
	}
	agg := cfg.Aggregator
	if agg == nil {
		agg = NewAggregator(AggregatorConfig{})
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", LivenessHandler())
	mux.Handle("GET /readyz", protect(ReadinessHandler(agg)))
	mux.Handle("GET /health", protect(DetailedHandler(agg)))
	if cfg.Breakers != nil {
		mux.Handle("GET /stats", protect(StatsHandler(cfg.Breakers, cfg.Caches)))
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", protect(cfg.Metrics))
	}

	return otelhttp.NewHandler(mux, "ops",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "ops " + r.Method + " " + r.URL.Path
		}),
	)
}
