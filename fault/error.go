package fault

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Kind identifies a concrete error variant.
type Kind struct {
	Name       string
	Code       string
	StatusCode int
}

// Error codes.
const (
	CodeSecurity        = "SECURITY_ERROR"
	CodeGitHub          = "GITHUB_ERROR"
	CodeTimeout         = "TIMEOUT_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
	CodeOperationFailed = "OPERATION_FAILED"
	CodeCircuitOpen     = "CIRCUIT_BREAKER_OPEN"
	CodeUpstream        = "UPSTREAM_ERROR"
	CodeNotFound        = "NOT_FOUND"
)

// Known kinds.
var (
	KindSecurity        = Kind{Name: "SecurityError", Code: CodeSecurity, StatusCode: 403}
	KindGitHub          = Kind{Name: "GitHubError", Code: CodeGitHub, StatusCode: 502}
	KindTimeout         = Kind{Name: "TimeoutError", Code: CodeTimeout, StatusCode: 408}
	KindValidation      = Kind{Name: "ValidationError", Code: CodeValidation, StatusCode: 400}
	KindOperationFailed = Kind{Name: "OperationFailedError", Code: CodeOperationFailed, StatusCode: 500}
	KindCircuitOpen     = Kind{Name: "CircuitBreakerOpenError", Code: CodeCircuitOpen, StatusCode: 503}
	KindUpstream        = Kind{Name: "UpstreamError", Code: CodeUpstream, StatusCode: 502}
	KindNotFound        = Kind{Name: "NotFoundError", Code: CodeNotFound, StatusCode: 404}
)

// Sentinels for errors.Is comparisons. Two *Error values match when their
// codes are equal.
var (
	ErrSecurity        = &Error{kind: KindSecurity}
	ErrGitHub          = &Error{kind: KindGitHub}
	ErrTimeout         = &Error{kind: KindTimeout}
	ErrValidation      = &Error{kind: KindValidation}
	ErrOperationFailed = &Error{kind: KindOperationFailed}
	ErrCircuitOpen     = &Error{kind: KindCircuitOpen}
	ErrUpstream        = &Error{kind: KindUpstream}
	ErrNotFound        = &Error{kind: KindNotFound}
)

const maxStackDepth = 32

// Error is a typed domain error. Its kind is fixed at construction and its
// context is always sanitized.
type Error struct {
	kind      Kind
	message   string
	timestamp time.Time
	context   map[string]any
	cause     error
	stack     []uintptr
}

// New creates an error of the given kind.
func New(kind Kind, message string, ctx map[string]any) *Error {
	return newError(kind, message, ctx, nil)
}

// Wrap creates an error of the given kind that wraps cause.
// An empty message falls back to the cause's message.
func Wrap(kind Kind, cause error, message string, ctx map[string]any) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return newError(kind, message, ctx, cause)
}

func newError(kind Kind, message string, ctx map[string]any, cause error) *Error {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(3, pcs)
	return &Error{
		kind:      kind,
		message:   message,
		timestamp: time.Now(),
		context:   SanitizeContext(ctx),
		cause:     cause,
		stack:     pcs[:n],
	}
}

// NewSecurityError reports an authorization or permission failure.
func NewSecurityError(message string, ctx map[string]any) *Error {
	return newError(KindSecurity, message, ctx, nil)
}

// NewGitHubError reports a failure of the GitHub dependency.
func NewGitHubError(message string, ctx map[string]any) *Error {
	return newError(KindGitHub, message, ctx, nil)
}

// NewTimeoutError reports an attempt that exceeded its deadline.
func NewTimeoutError(message string, ctx map[string]any) *Error {
	return newError(KindTimeout, message, ctx, nil)
}

// NewValidationError reports bad caller input.
func NewValidationError(message string, ctx map[string]any) *Error {
	return newError(KindValidation, message, ctx, nil)
}

// NewOperationFailedError wraps an unclassified failure.
func NewOperationFailedError(message string, ctx map[string]any, cause error) *Error {
	return newError(KindOperationFailed, message, ctx, cause)
}

// NewCircuitBreakerOpenError reports a call rejected by an open circuit.
func NewCircuitBreakerOpenError(operation string, ctx map[string]any) *Error {
	merged := make(map[string]any, len(ctx)+1)
	for k, v := range ctx {
		merged[k] = v
	}
	merged["operationName"] = operation
	return newError(KindCircuitOpen, fmt.Sprintf("circuit breaker is open for operation %q", operation), merged, nil)
}

// NewUpstreamError reports a failure returned by the n8n API.
func NewUpstreamError(message string, ctx map[string]any, cause error) *Error {
	return newError(KindUpstream, message, ctx, cause)
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(message string, ctx map[string]any) *Error {
	return newError(KindNotFound, message, ctx, nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind.Code == e.kind.Code
}

// Name returns the discriminator of the concrete kind, e.g. "TimeoutError".
func (e *Error) Name() string { return e.kind.Name }

// Code returns the stable machine-readable code.
func (e *Error) Code() string { return e.kind.Code }

// StatusCode returns the HTTP-like status.
func (e *Error) StatusCode() int { return e.kind.StatusCode }

// Kind returns the error kind.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the human-readable description.
func (e *Error) Message() string { return e.message }

// Timestamp returns when the error was created.
func (e *Error) Timestamp() time.Time { return e.timestamp }

// Context returns a copy of the sanitized context.
func (e *Error) Context() map[string]any {
	out := make(map[string]any, len(e.context))
	for k, v := range e.context {
		out[k] = v
	}
	return out
}

// WithContext returns a copy of e whose context also contains ctx. Keys
// already present are overwritten. The result is sanitized again.
func (e *Error) WithContext(ctx map[string]any) *Error {
	merged := e.Context()
	for k, v := range ctx {
		merged[k] = v
	}
	cp := *e
	cp.context = SanitizeContext(merged)
	return &cp
}

// Stack returns the captured call stack, one "function (file:line)" per frame.
func (e *Error) Stack() []string {
	if len(e.stack) == 0 {
		return []string{}
	}
	frames := runtime.CallersFrames(e.stack)
	out := make([]string, 0, len(e.stack))
	for {
		f, more := frames.Next()
		out = append(out, fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line))
		if !more {
			break
		}
	}
	return out
}

type errorJSON struct {
	Name       string         `json:"name"`
	Message    string         `json:"message"`
	Code       string         `json:"code"`
	StatusCode int            `json:"statusCode"`
	Timestamp  string         `json:"timestamp"`
	Context    map[string]any `json:"context"`
	Stack      []string       `json:"stack"`
}

// MarshalJSON emits the wire shape handed to MCP clients.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorJSON{
		Name:       e.kind.Name,
		Message:    e.message,
		Code:       e.kind.Code,
		StatusCode: e.kind.StatusCode,
		Timestamp:  e.timestamp.UTC().Format(time.RFC3339Nano),
		Context:    e.context,
		Stack:      e.Stack(),
	})
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	if fe, ok := As(err); ok {
		return fe.Code()
	}
	return ""
}

// StatusOf returns the status of the first *Error in err's chain, or 500.
func StatusOf(err error) int {
	if fe, ok := As(err); ok {
		return fe.StatusCode()
	}
	return 500
}
