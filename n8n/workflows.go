package n8n

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
)

// ListWorkflows returns one page of workflows.
func (c *Client) ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*Page[Workflow], error) {
	q := url.Values{}
	params := map[string]any{}
	if opts.Active != nil {
		q.Set("active", strconv.FormatBool(*opts.Active))
		params["active"] = *opts.Active
	}
	if len(opts.Tags) > 0 {
		tags := strings.Join(opts.Tags, ",")
		q.Set("tags", tags)
		params["tags"] = tags
	}
	if opts.Name != "" {
		q.Set("name", opts.Name)
		params["name"] = opts.Name
	}
	setPage(q, params, opts.Limit, opts.Cursor)

	var page Page[Workflow]
	err := c.read(ctx, c.workflows, "listWorkflows", params, request{
		method: http.MethodGet,
		path:   "/workflows",
		query:  q,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAllWorkflows follows cursors until n8n has no more pages or limit
// workflows were collected. limit <= 0 means no limit.
func (c *Client) ListAllWorkflows(ctx context.Context, opts ListWorkflowsOptions, limit int) ([]Workflow, error) {
	var all []Workflow
	for {
		page, err := c.ListWorkflows(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)
		if page.NextCursor == "" || (limit > 0 && len(all) >= limit) {
			break
		}
		opts.Cursor = page.NextCursor
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetWorkflow returns one workflow.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	if err := requireID("workflow", id); err != nil {
		return nil, err
	}
	var wf Workflow
	err := c.read(ctx, c.workflows, "getWorkflow", map[string]any{"id": id}, request{
		method: http.MethodGet,
		path:   "/workflows/" + url.PathEscape(id),
	}, &wf)
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

// CreateWorkflow creates a workflow. Creation is not idempotent, so it is
// attempted once.
func (c *Client) CreateWorkflow(ctx context.Context, in WorkflowInput) (*Workflow, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fault.NewValidationError("workflow name is required", nil)
	}
	op := c.operation("createWorkflow", map[string]any{"name": in.Name})
	op.MaxRetries = 1

	raw, err := c.call(ctx, op, request{
		method: http.MethodPost,
		path:   "/workflows",
		body:   in.normalized(),
	})
	if err != nil {
		return nil, err
	}
	c.invalidateWorkflow("")

	var wf Workflow
	if err := decode(raw, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// UpdateWorkflow replaces the writable fields of a workflow.
func (c *Client) UpdateWorkflow(ctx context.Context, id string, in WorkflowInput) (*Workflow, error) {
	if err := requireID("workflow", id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fault.NewValidationError("workflow name is required", map[string]any{"id": id})
	}
	return c.writeWorkflow(ctx, "updateWorkflow", id, request{
		method: http.MethodPut,
		path:   "/workflows/" + url.PathEscape(id),
		body:   in.normalized(),
	})
}

// ActivateWorkflow activates a workflow.
func (c *Client) ActivateWorkflow(ctx context.Context, id string) (*Workflow, error) {
	if err := requireID("workflow", id); err != nil {
		return nil, err
	}
	return c.writeWorkflow(ctx, "activateWorkflow", id, request{
		method: http.MethodPost,
		path:   "/workflows/" + url.PathEscape(id) + "/activate",
	})
}

// DeactivateWorkflow deactivates a workflow.
func (c *Client) DeactivateWorkflow(ctx context.Context, id string) (*Workflow, error) {
	if err := requireID("workflow", id); err != nil {
		return nil, err
	}
	return c.writeWorkflow(ctx, "deactivateWorkflow", id, request{
		method: http.MethodPost,
		path:   "/workflows/" + url.PathEscape(id) + "/deactivate",
	})
}

// DeleteWorkflow deletes a workflow and returns it as it was.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) (*Workflow, error) {
	if err := requireID("workflow", id); err != nil {
		return nil, err
	}
	return c.writeWorkflow(ctx, "deleteWorkflow", id, request{
		method: http.MethodDelete,
		path:   "/workflows/" + url.PathEscape(id),
	})
}

func (c *Client) writeWorkflow(ctx context.Context, name, id string, r request) (*Workflow, error) {
	raw, err := c.call(ctx, c.operation(name, map[string]any{"id": id}), r)
	// A failed write may still have been applied.
	c.invalidateWorkflow(id)
	if err != nil {
		return nil, err
	}
	var wf Workflow
	if err := decode(raw, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// invalidateWorkflow drops cached lists and, when id is set, the cached
// workflow.
func (c *Client) invalidateWorkflow(id string) {
	m := c.workflows.Cache()
	m.DeletePrefix(c.keyer.OperationPrefix("listWorkflows"))
	if id != "" {
		if key, err := c.keyer.Key("getWorkflow", map[string]any{"id": id}); err == nil {
			m.Delete(key)
		}
	}
	// Tags are embedded in workflows.
	c.metadata.Cache().DeletePrefix(c.keyer.OperationPrefix("listTags"))
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fault.NewValidationError(kind+" id is required", nil)
	}
	return nil
}

func setPage(q url.Values, params map[string]any, limit int, cursor string) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
		params["limit"] = limit
	}
	if cursor != "" {
		q.Set("cursor", cursor)
		params["cursor"] = cursor
	}
}
