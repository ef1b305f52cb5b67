package n8n

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
)

// ErrMissingBaseURL is returned by New without a base URL.
var ErrMissingBaseURL = errors.New("n8n: base URL is required")

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// responseError maps a non-2xx n8n response to a domain error. Client
// errors are not retried; 408, 429 and 5xx are.
func responseError(method, path string, status int, body []byte) error {
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	ctx := map[string]any{
		"method":         method,
		"path":           path,
		"upstreamStatus": status,
	}
	text := fmt.Sprintf("n8n %s %s: %s", method, path, msg)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fault.NewSecurityError(text, ctx)
	case status == http.StatusNotFound:
		return fault.NewNotFoundError(text, ctx)
	case status == http.StatusRequestTimeout:
		return fault.NewTimeoutError(text, ctx)
	case status == http.StatusTooManyRequests || status >= 500:
		return fault.NewUpstreamError(text, ctx, nil)
	default:
		return fault.NewValidationError(text, ctx)
	}
}

// errorMessage extracts n8n's {"message": "..."} or falls back to the raw
// body.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
