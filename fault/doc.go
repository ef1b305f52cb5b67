// Package fault defines the domain error taxonomy shared by every layer that
// talks to n8n.
//
// Each error carries a stable machine-readable code, an HTTP-like status, a
// creation timestamp and a context map. The context map is sanitized when the
// error is built: values under sensitive keys are replaced with [Redacted] and
// oversized strings are truncated. There is no way to attach an unsanitized
// context, because these errors are returned verbatim to MCP clients.
//
// # Kinds
//
//	SecurityError          403  SECURITY_ERROR
//	ValidationError        400  VALIDATION_ERROR
//	NotFoundError          404  NOT_FOUND
//	TimeoutError           408  TIMEOUT_ERROR
//	OperationFailedError   500  OPERATION_FAILED
//	GitHubError            502  GITHUB_ERROR
//	UpstreamError          502  UPSTREAM_ERROR
//	CircuitBreakerOpenError 503 CIRCUIT_BREAKER_OPEN
//
// # Usage
//
//	err := fault.NewValidationError("limit must be positive", map[string]any{
//	    "limit": -1,
//	})
//	if errors.Is(err, fault.ErrValidation) {
//	    // ...
//	}
//	data, _ := json.Marshal(err) // name, message, code, statusCode, timestamp, context, stack
package fault
