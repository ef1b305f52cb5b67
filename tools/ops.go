package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
)

func (t *Toolset) opsTools() []definition {
	return []definition{
		{
			tool: mcp.NewTool("get_error_stats",
				mcp.WithDescription("Failure counts per operation in the current window and the state of every circuit breaker"),
			),
			category: "ops",
			tags:     []string{"read"},
			run:      t.errorStats,
		},
		{
			tool: mcp.NewTool("get_cache_stats",
				mcp.WithDescription("Size, hit rate and evictions of the workflow, execution and metadata caches"),
				mcp.WithBoolean("clear", mcp.Description("Empty the caches after reading their statistics")),
			),
			category: "ops",
			tags:     []string{"read"},
			run:      t.cacheStats,
		},
		{
			tool: mcp.NewTool("reset_circuit_breakers",
				mcp.WithDescription("Close every circuit breaker and clear its failure count"),
			),
			category: "ops",
			tags:     []string{"write"},
			run:      t.resetBreakers,
		},
	}
}

func (t *Toolset) errorStats(context.Context, observe.ToolMeta, map[string]any) (any, error) {
	return t.handler.Stats(), nil
}

func (t *Toolset) cacheStats(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	clearAfter, _, err := boolArg(args, "clear")
	if err != nil {
		return nil, err
	}
	stats := t.client.CacheStats()
	if clearAfter {
		if err := t.client.ClearCaches(ctx); err != nil {
			return nil, fmt.Errorf("persist cleared caches: %w", err)
		}
	}
	return map[string]any{"caches": stats, "cleared": clearAfter}, nil
}

func (t *Toolset) resetBreakers(context.Context, observe.ToolMeta, map[string]any) (any, error) {
	t.handler.ResetCircuitBreakers()
	return map[string]any{"reset": t.handler.Operations()}, nil
}
