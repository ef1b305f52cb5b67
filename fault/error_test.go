package fault

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		kind   string
		code   string
		status int
	}{
		{"security", NewSecurityError("denied", nil), "SecurityError", "SECURITY_ERROR", 403},
		{"github", NewGitHubError("bad gateway", nil), "GitHubError", "GITHUB_ERROR", 502},
		{"timeout", NewTimeoutError("too slow", nil), "TimeoutError", "TIMEOUT_ERROR", 408},
		{"validation", NewValidationError("bad input", nil), "ValidationError", "VALIDATION_ERROR", 400},
		{"operation failed", NewOperationFailedError("boom", nil, nil), "OperationFailedError", "OPERATION_FAILED", 500},
		{"circuit open", NewCircuitBreakerOpenError("listWorkflows", nil), "CircuitBreakerOpenError", "CIRCUIT_BREAKER_OPEN", 503},
		{"upstream", NewUpstreamError("n8n down", nil, nil), "UpstreamError", "UPSTREAM_ERROR", 502},
		{"not found", NewNotFoundError("no workflow", nil), "NotFoundError", "NOT_FOUND", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Name(); got != tt.kind {
				t.Errorf("Name() = %q, want %q", got, tt.kind)
			}
			if got := tt.err.Code(); got != tt.code {
				t.Errorf("Code() = %q, want %q", got, tt.code)
			}
			if got := tt.err.StatusCode(); got != tt.status {
				t.Errorf("StatusCode() = %d, want %d", got, tt.status)
			}
			if tt.err.Timestamp().IsZero() {
				t.Error("Timestamp() is zero")
			}
		})
	}
}

func TestSanitize_RedactsSensitiveKeys(t *testing.T) {
	err := NewValidationError("bad", map[string]any{
		"password":      "hunter2",
		"apiToken":      "abc",
		"CLIENT_SECRET": "s",
		"X-API-KEY":     "k",
		"credentials":   map[string]any{"user": "u"},
		"Authorization": "Bearer x",
		"workflowId":    "42",
		"count":         3,
	})

	ctx := err.Context()
	for _, k := range []string{"password", "apiToken", "CLIENT_SECRET", "X-API-KEY", "credentials", "Authorization"} {
		if ctx[k] != Redacted {
			t.Errorf("ctx[%q] = %v, want %s", k, ctx[k], Redacted)
		}
	}
	if ctx["workflowId"] != "42" {
		t.Errorf("workflowId = %v", ctx["workflowId"])
	}
	if ctx["count"] != 3 {
		t.Errorf("count = %v", ctx["count"])
	}
}

func TestSanitize_TruncatesLongStrings(t *testing.T) {
	long := strings.Repeat("a", 5000)
	err := NewOperationFailedError("boom", map[string]any{"body": long}, nil)

	body, ok := err.Context()["body"].(string)
	if !ok {
		t.Fatalf("body is %T, want string", err.Context()["body"])
	}
	if !strings.HasSuffix(body, TruncatedMarker) {
		t.Errorf("body does not end with %s", TruncatedMarker)
	}
	if len(body) != MaxValueLength {
		t.Errorf("len(body) = %d, want %d", len(body), MaxValueLength)
	}
}

func TestSanitize_NestedAndBounded(t *testing.T) {
	ctx := map[string]any{
		"request": map[string]any{"headers": map[string]any{"authorization": "Bearer t"}},
	}
	for i := 0; i < MaxContextKeys+5; i++ {
		ctx[fmt.Sprintf("k%03d", i)] = i
	}

	out := SanitizeContext(ctx)
	if len(out) > MaxContextKeys+1 {
		t.Errorf("len(out) = %d, want <= %d", len(out), MaxContextKeys+1)
	}
	if out[truncatedKeysField] != 6 {
		t.Errorf("%s = %v, want 6", truncatedKeysField, out[truncatedKeysField])
	}

	// The input is not modified.
	if len(ctx) != MaxContextKeys+6 {
		t.Errorf("input has %d keys", len(ctx))
	}
}

func TestSanitize_NestedMapRedaction(t *testing.T) {
	out := SanitizeContext(map[string]any{
		"request": map[string]any{"authorization": "Bearer t", "path": "/api/v1/workflows"},
	})
	req, ok := out["request"].(map[string]any)
	if !ok {
		t.Fatalf("request is %T", out["request"])
	}
	if req["authorization"] != Redacted {
		t.Errorf("authorization = %v", req["authorization"])
	}
	if req["path"] != "/api/v1/workflows" {
		t.Errorf("path = %v", req["path"])
	}
}

func TestSanitize_DepthLimit(t *testing.T) {
	cyclic := map[string]any{"name": "loop"}
	cyclic["self"] = cyclic
	list := []any{"head"}
	list = append(list, nil)
	list[1] = list

	tests := []struct {
		name string
		ctx  map[string]any
	}{
		{"self-referential map", map[string]any{"node": cyclic}},
		{"self-referential slice", map[string]any{"items": list}},
		{"deep chain", map[string]any{"root": chain(3 * MaxContextDepth)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := SanitizeContext(tt.ctx)
			data, err := json.Marshal(out)
			if err != nil {
				t.Fatalf("sanitized context does not marshal: %v", err)
			}
			if !strings.Contains(string(data), DepthMarker) {
				t.Errorf("no %s in %s", DepthMarker, data)
			}
		})
	}

	shallow := SanitizeContext(map[string]any{"root": chain(MaxContextDepth - 1)})
	if data, _ := json.Marshal(shallow); strings.Contains(string(data), DepthMarker) {
		t.Errorf("shallow context was cut: %s", data)
	}
}

// chain nests n maps under "next".
func chain(n int) map[string]any {
	m := map[string]any{"leaf": true}
	for i := 0; i < n; i++ {
		m = map[string]any{"next": m}
	}
	return m
}

func TestWithContext_Resanitizes(t *testing.T) {
	base := NewUpstreamError("n8n down", map[string]any{"status": 502}, nil)
	enriched := base.WithContext(map[string]any{"apiKey": "n8n_api_123", "operationName": "listWorkflows"})

	ctx := enriched.Context()
	if ctx["apiKey"] != Redacted {
		t.Errorf("apiKey = %v", ctx["apiKey"])
	}
	if ctx["operationName"] != "listWorkflows" {
		t.Errorf("operationName = %v", ctx["operationName"])
	}
	if ctx["status"] != 502 {
		t.Errorf("status = %v", ctx["status"])
	}
	if _, had := base.Context()["operationName"]; had {
		t.Error("WithContext must not mutate the receiver")
	}
}

func TestMarshalJSON(t *testing.T) {
	err := NewSecurityError("forbidden", map[string]any{"token": "t", "user": "alice"})

	data, mErr := json.Marshal(err)
	if mErr != nil {
		t.Fatal(mErr)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"name":       "SecurityError",
		"message":    "forbidden",
		"code":       "SECURITY_ERROR",
		"statusCode": float64(403),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if got["timestamp"] == "" || got["timestamp"] == nil {
		t.Error("timestamp missing")
	}

	ctx := got["context"].(map[string]any)
	if ctx["token"] != Redacted || ctx["user"] != "alice" {
		t.Errorf("context = %v", ctx)
	}

	stack, ok := got["stack"].([]any)
	if !ok || len(stack) == 0 {
		t.Errorf("stack = %v, want a non-empty array of frames", got["stack"])
	}
}

func TestIsAndAs(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("listing workflows: %w", NewUpstreamError("n8n unreachable", nil, cause))

	if !errors.Is(err, ErrUpstream) {
		t.Error("errors.Is(err, ErrUpstream) = false")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("errors.Is(err, ErrTimeout) = true")
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}

	fe, ok := As(err)
	if !ok {
		t.Fatal("As() = false")
	}
	if fe.Code() != CodeUpstream || CodeOf(err) != CodeUpstream {
		t.Errorf("code = %s / %s", fe.Code(), CodeOf(err))
	}
	if got := StatusOf(err); got != 502 {
		t.Errorf("StatusOf() = %d", got)
	}

	if got := CodeOf(cause); got != "" {
		t.Errorf("CodeOf(plain) = %q", got)
	}
	if got := StatusOf(cause); got != 500 {
		t.Errorf("StatusOf(plain) = %d", got)
	}
}

func TestWrap_DefaultsMessage(t *testing.T) {
	cause := errors.New("socket hang up")
	err := Wrap(KindOperationFailed, cause, "", nil)
	if err.Error() != "socket hang up" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
}

func TestSanitize_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fragment := rapid.SampledFrom(SensitiveKeys).Draw(t, "fragment")
		prefix := rapid.StringMatching(`[a-zA-Z_]{0,6}`).Draw(t, "prefix")
		upper := rapid.Bool().Draw(t, "upper")
		key := prefix + fragment
		if upper {
			key = strings.ToUpper(key)
		}
		value := rapid.String().Draw(t, "value")
		long := strings.Repeat("x", MaxValueLength+1+rapid.IntRange(0, 2000).Draw(t, "extra"))

		out := SanitizeContext(map[string]any{key: value, "payload": long})

		if out[key] != Redacted {
			t.Fatalf("key %q not redacted: %v", key, out[key])
		}
		payload := out["payload"].(string)
		if len(payload) >= len(long) || !strings.HasSuffix(payload, TruncatedMarker) {
			t.Fatalf("payload not truncated: len=%d", len(payload))
		}
	})
}
