package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrRateLimitExceeded is returned when no rate limit token arrives in time.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")
)

// isAdmissionError reports errors raised by local admission gates rather
// than by the wrapped operation. They never count against the breaker.
func isAdmissionError(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrBulkheadFull)
}
