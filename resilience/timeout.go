package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
)

type outcome struct {
	value any
	err   error
}

// withTimeout runs op with a per-attempt deadline. When the deadline wins the
// op's context is cancelled and its late result, if any, is discarded.
func withTimeout(ctx context.Context, operation string, timeout time.Duration, op func(context.Context) (any, error)) (any, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		v, err := op(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fault.NewTimeoutError(
				fmt.Sprintf("operation %s timed out after %s", operation, timeout),
				map[string]any{"operationName": operation, "timeoutMs": timeout.Milliseconds()},
			)
		}
		return nil, ctx.Err()
	}
}
