package resilience

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
)

var (
	timeoutPattern  = regexp.MustCompile(`(?i)time[ -]?out|timed[ -]?out|deadline exceeded|etimedout`)
	securityPattern = regexp.MustCompile(`(?i)unauthori[sz]ed|forbidden|permission denied|access denied|authentication|\b401\b|\b403\b`)
)

// Enhance turns the error that exhausted an operation into a domain error.
// Domain errors pass through unchanged. Otherwise a timeout-like message
// becomes a TimeoutError, an authorization-like message a SecurityError, and
// anything else an OperationFailedError. operationName and ctx are merged into
// the new error's context.
func Enhance(err error, operationName string, ctx map[string]any) error {
	if err == nil {
		return nil
	}
	if fe, ok := fault.As(err); ok {
		return fe
	}

	merged := make(map[string]any, len(ctx)+2)
	for k, v := range ctx {
		merged[k] = v
	}
	merged["operationName"] = operationName
	merged["originalError"] = err.Error()

	msg := err.Error()
	switch {
	case timeoutPattern.MatchString(msg):
		return fault.Wrap(fault.KindTimeout, err, fmt.Sprintf("operation %s timed out: %s", operationName, msg), merged)
	case securityPattern.MatchString(msg):
		return fault.Wrap(fault.KindSecurity, err, fmt.Sprintf("operation %s was denied: %s", operationName, msg), merged)
	default:
		return fault.NewOperationFailedError(fmt.Sprintf("operation %s failed: %s", operationName, msg), merged, err)
	}
}

// DefaultIsRetryable retries everything except caller mistakes, permission
// failures, missing resources and caller cancellation.
func DefaultIsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch fault.CodeOf(err) {
	case fault.CodeValidation, fault.CodeSecurity, fault.CodeNotFound:
		return false
	}
	return true
}

// DefaultTripsBreaker counts every failure against the breaker except
// rejected input and missing resources. Those describe the request, not the
// health of the upstream, so a burst of lookups for unknown ids must not
// block valid calls under the same operation name.
func DefaultTripsBreaker(err error) bool {
	switch fault.CodeOf(err) {
	case fault.CodeValidation, fault.CodeNotFound:
		return false
	}
	return true
}

// RetryAll retries every error; the loop runs all MaxRetries attempts.
func RetryAll(error) bool { return true }
