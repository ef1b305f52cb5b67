package n8n

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListExecutions returns one page of executions.
func (c *Client) ListExecutions(ctx context.Context, opts ListExecutionsOptions) (*Page[Execution], error) {
	q := url.Values{}
	params := map[string]any{}
	if opts.WorkflowID != "" {
		q.Set("workflowId", opts.WorkflowID)
		params["workflowId"] = opts.WorkflowID
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
		params["status"] = opts.Status
	}
	if opts.IncludeData {
		q.Set("includeData", "true")
		params["includeData"] = true
	}
	setPage(q, params, opts.Limit, opts.Cursor)

	var page Page[Execution]
	err := c.read(ctx, c.executions, "listExecutions", params, request{
		method: http.MethodGet,
		path:   "/executions",
		query:  q,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetExecution returns one execution, with its run data when includeData
// is set.
func (c *Client) GetExecution(ctx context.Context, id string, includeData bool) (*Execution, error) {
	if err := requireID("execution", id); err != nil {
		return nil, err
	}
	var q url.Values
	if includeData {
		q = url.Values{"includeData": {strconv.FormatBool(includeData)}}
	}

	var exec Execution
	err := c.read(ctx, c.executions, "getExecution", map[string]any{"id": id, "includeData": includeData}, request{
		method: http.MethodGet,
		path:   "/executions/" + url.PathEscape(id),
		query:  q,
	}, &exec)
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

// DeleteExecution deletes an execution and returns it as it was.
func (c *Client) DeleteExecution(ctx context.Context, id string) (*Execution, error) {
	if err := requireID("execution", id); err != nil {
		return nil, err
	}
	raw, err := c.call(ctx, c.operation("deleteExecution", map[string]any{"id": id}), request{
		method: http.MethodDelete,
		path:   "/executions/" + url.PathEscape(id),
	})
	m := c.executions.Cache()
	m.DeletePrefix(c.keyer.OperationPrefix("listExecutions"))
	m.DeletePrefix(c.keyer.OperationPrefix("getExecution"))
	if err != nil {
		return nil, err
	}

	var exec Execution
	if err := decode(raw, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// ListTags returns one page of tags.
func (c *Client) ListTags(ctx context.Context, opts ListTagsOptions) (*Page[Tag], error) {
	q := url.Values{}
	params := map[string]any{}
	setPage(q, params, opts.Limit, opts.Cursor)

	var page Page[Tag]
	err := c.read(ctx, c.metadata, "listTags", params, request{
		method: http.MethodGet,
		path:   "/tags",
		query:  q,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}
