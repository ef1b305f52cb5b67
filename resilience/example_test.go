package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
	"github.com/leonardsellem/n8n-mcp-server-sub013/resilience"
)

func ExampleDo() {
	h := resilience.NewHandler()
	attempts := 0

	name, err := resilience.Do(context.Background(), h, resilience.OperationConfig{
		OperationName: "getWorkflow",
		MaxRetries:    3,
		RetryDelay:    time.Millisecond,
	}, func(context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("connection reset")
		}
		return "Nightly sync", nil
	})

	fmt.Println(name, err, attempts)
	// Output: Nightly sync <nil> 2
}

func ExampleHandler_Execute() {
	h := resilience.NewHandler()

	err := h.Execute(context.Background(), resilience.OperationConfig{
		OperationName: "deleteWorkflow",
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
	}, func(context.Context) error {
		return errors.New("403 Forbidden")
	})

	fmt.Println(fault.CodeOf(err))
	// Output: SECURITY_ERROR
}

func ExampleEffectiveState() {
	now := time.Now()
	fmt.Println(resilience.EffectiveState(resilience.StateOpen, now, now.Add(time.Second)))
	fmt.Println(resilience.EffectiveState(resilience.StateOpen, now, now.Add(-time.Second)))
	// Output:
	// OPEN
	// HALF_OPEN
}
