package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
)

func TestEnhance_Nil(t *testing.T) {
	if Enhance(nil, "op", nil) != nil {
		t.Error("Enhance(nil) should be nil")
	}
}

func TestEnhance_UnwrapsDomainError(t *testing.T) {
	inner := fault.NewNotFoundError("workflow 7 not found", nil)
	err := Enhance(fmt.Errorf("get: %w", inner), "getWorkflow", nil)
	if err != inner {
		t.Errorf("Enhance() = %v, want the inner domain error", err)
	}
}

func TestEnhance_MergesContext(t *testing.T) {
	err := Enhance(errors.New("socket hang up"), "listTags", map[string]any{"page": 2})
	fe, ok := fault.As(err)
	if !ok {
		t.Fatalf("expected *fault.Error, got %T", err)
	}
	ctx := fe.Context()
	if ctx["operationName"] != "listTags" || ctx["page"] != 2 || ctx["originalError"] != "socket hang up" {
		t.Errorf("context = %v", ctx)
	}
	if fe.StatusCode() != 500 {
		t.Errorf("status = %d", fe.StatusCode())
	}
}

func TestDefaultIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), true},
		{"canceled", context.Canceled, false},
		{"wrapped canceled", fmt.Errorf("op: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, true},
		{"validation", fault.NewValidationError("bad", nil), false},
		{"security", fault.NewSecurityError("denied", nil), false},
		{"not found", fault.NewNotFoundError("gone", nil), false},
		{"upstream", fault.NewUpstreamError("502", nil, nil), true},
		{"timeout", fault.NewTimeoutError("slow", nil), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultIsRetryable(tc.err); got != tc.want {
				t.Errorf("DefaultIsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
