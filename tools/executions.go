package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
	"github.com/leonardsellem/n8n-mcp-server-sub013/n8n"
	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
)

func (t *Toolset) executionTools() []definition {
	idArg := mcp.WithString("id", mcp.Required(), mcp.Description("Execution ID"))
	return []definition{
		{
			tool: mcp.NewTool("list_executions",
				mcp.WithDescription("List workflow executions, newest first, one n8n page at a time"),
				mcp.WithString("workflowId", mcp.Description("Only executions of this workflow")),
				mcp.WithString("status", mcp.Enum(n8n.StatusSuccess, n8n.StatusError, n8n.StatusWaiting)),
				mcp.WithBoolean("includeData", mcp.Description("Include run data (large)")),
				mcp.WithNumber("limit", mcp.Description("Page size (max 250)")),
				mcp.WithString("cursor", mcp.Description("nextCursor from a previous page")),
			),
			category: "executions",
			tags:     []string{"read"},
			run:      t.listExecutions,
		},
		{
			tool: mcp.NewTool("get_execution",
				mcp.WithDescription("Get one execution"),
				idArg,
				mcp.WithBoolean("includeData", mcp.Description("Include run data (large)")),
			),
			category: "executions",
			tags:     []string{"read"},
			run:      t.getExecution,
		},
		{
			tool:     mcp.NewTool("delete_execution", mcp.WithDescription("Delete an execution"), idArg),
			category: "executions",
			tags:     []string{"write"},
			run:      t.deleteExecution,
		},
		{
			tool: mcp.NewTool("list_tags",
				mcp.WithDescription("List workflow tags"),
				mcp.WithNumber("limit", mcp.Description("Page size")),
				mcp.WithString("cursor", mcp.Description("nextCursor from a previous page")),
			),
			category: "tags",
			tags:     []string{"read"},
			run:      t.listTags,
		},
	}
}

// n8nPageLimit is the largest page the n8n API serves.
const n8nPageLimit = 250

func (t *Toolset) listExecutions(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	opts := n8n.ListExecutionsOptions{
		WorkflowID: stringArg(args, "workflowId"),
		Status:     stringArg(args, "status"),
		Cursor:     stringArg(args, "cursor"),
	}
	switch opts.Status {
	case "", n8n.StatusSuccess, n8n.StatusError, n8n.StatusWaiting:
	default:
		return nil, fault.NewValidationError("status must be success, error or waiting", map[string]any{"status": opts.Status})
	}
	var err error
	if opts.IncludeData, _, err = boolArg(args, "includeData"); err != nil {
		return nil, err
	}
	if opts.Limit, err = intArg(args, "limit"); err != nil {
		return nil, err
	}
	opts.Limit = min(max(opts.Limit, 0), n8nPageLimit)
	return t.client.ListExecutions(ctx, opts)
}

func (t *Toolset) getExecution(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	includeData, _, err := boolArg(args, "includeData")
	if err != nil {
		return nil, err
	}
	return t.client.GetExecution(ctx, id, includeData)
}

func (t *Toolset) deleteExecution(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	exec, err := t.client.DeleteExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true, "id": exec.ID, "workflowId": exec.WorkflowID}, nil
}

func (t *Toolset) listTags(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	limit, err := intArg(args, "limit")
	if err != nil {
		return nil, err
	}
	return t.client.ListTags(ctx, n8n.ListTagsOptions{
		Limit:  min(max(limit, 0), n8nPageLimit),
		Cursor: stringArg(args, "cursor"),
	})
}
