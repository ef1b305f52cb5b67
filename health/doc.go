// Package health reports whether the server can do useful work.
//
// Checkers cover the parts that fail independently: circuit breakers
// (BreakerChecker, degraded while any breaker is open), caches
// (CacheChecker, degraded when a full cache thrashes), n8n reachability
// (UpstreamChecker) and heap usage (MemoryChecker). An Aggregator runs them
// concurrently under a shared timeout.
//
// NewMux serves the results on the ops HTTP server:
//
//	/healthz  liveness, always open
//	/readyz   OK, DEGRADED or UNHEALTHY (503)
//	/health   per-check JSON
//	/stats    error counts, breaker snapshots and cache statistics
//	/metrics  Prometheus exposition, when configured
package health
