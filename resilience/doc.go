// Package resilience guards calls to the n8n API.
//
// The entry point is Handler, which runs an operation with:
//
//   - Circuit breaking: one CircuitBreaker per operation name. An open
//     breaker fails the call immediately with a CIRCUIT_BREAKER_OPEN error.
//     The OPEN to HALF_OPEN move is evaluated lazily from the clock on each
//     consultation (see EffectiveState).
//
//   - Retry: up to MaxRetries attempts with RetryDelay * 2^(n-1) between them.
//
//   - Timeout: each attempt can be bounded; a late attempt is cancelled and
//     reported as a TIMEOUT_ERROR.
//
//   - Classification: the error that exhausts the retries is turned into a
//     *fault.Error (see Enhance). Callers never receive a bare error.
//
//   - Admission: an optional RateLimiter and Bulkhead gate every attempt.
//
// # Usage
//
//	h := resilience.NewHandler(resilience.WithLogger(logger))
//
//	wf, err := resilience.Do(ctx, h, resilience.OperationConfig{
//	    OperationName: "getWorkflow",
//	    MaxRetries:    3,
//	    RetryDelay:    500 * time.Millisecond,
//	    Timeout:       10 * time.Second,
//	}, func(ctx context.Context) (*Workflow, error) {
//	    return client.fetchWorkflow(ctx, id)
//	})
package resilience
