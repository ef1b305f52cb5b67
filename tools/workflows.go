package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardsellem/n8n-mcp-server-sub013/n8n"
	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
	"github.com/leonardsellem/n8n-mcp-server-sub013/pagination"
)

func (t *Toolset) workflowTools() []definition {
	idArg := mcp.WithString("id", mcp.Required(), mcp.Description("Workflow ID"))
	return []definition{
		{
			tool: mcp.NewTool("list_workflows",
				mcp.WithDescription("List n8n workflows with filtering, sorting and offset or cursor pagination. Returns workflow summaries without nodes."),
				mcp.WithBoolean("active", mcp.Description("Only active (true) or inactive (false) workflows")),
				mcp.WithString("tags", mcp.Description("Comma separated tag names; workflows must carry all of them")),
				mcp.WithString("name", mcp.Description("Case-insensitive substring of the workflow name")),
				mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 1000)")),
				mcp.WithNumber("offset", mcp.Description("Rows to skip in offset mode")),
				mcp.WithString("cursor", mcp.Description("Cursor from a previous page; switches to cursor mode")),
				mcp.WithString("direction", mcp.Description("Cursor direction"), mcp.Enum("forward", "backward")),
				mcp.WithString("sortBy", mcp.Description("Field to sort by, e.g. name or updatedAt")),
				mcp.WithString("sortOrder", mcp.Enum("asc", "desc")),
				mcp.WithBoolean("includeTotal", mcp.Description("Include total, page and totalPages")),
			),
			category: "workflows",
			tags:     []string{"read"},
			run:      t.listWorkflows,
		},
		{
			tool: mcp.NewTool("get_workflow",
				mcp.WithDescription("Get a workflow including its nodes and connections"),
				idArg,
			),
			category: "workflows",
			tags:     []string{"read"},
			run:      t.getWorkflow,
		},
		{
			tool: mcp.NewTool("create_workflow",
				mcp.WithDescription("Create a workflow. The new workflow is inactive."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Workflow name")),
				mcp.WithArray("nodes", mcp.Description("Workflow nodes"), mcp.Items(map[string]any{"type": "object"})),
				mcp.WithObject("connections", mcp.Description("Connections keyed by source node name")),
				mcp.WithObject("settings", mcp.Description("Workflow settings")),
			),
			category: "workflows",
			tags:     []string{"write"},
			run:      t.createWorkflow,
		},
		{
			tool: mcp.NewTool("update_workflow",
				mcp.WithDescription("Update a workflow. Omitted fields keep their current value."),
				idArg,
				mcp.WithString("name", mcp.Description("New name")),
				mcp.WithArray("nodes", mcp.Description("Replacement nodes"), mcp.Items(map[string]any{"type": "object"})),
				mcp.WithObject("connections", mcp.Description("Replacement connections")),
				mcp.WithObject("settings", mcp.Description("Replacement settings")),
			),
			category: "workflows",
			tags:     []string{"write"},
			run:      t.updateWorkflow,
		},
		{
			tool:     mcp.NewTool("activate_workflow", mcp.WithDescription("Activate a workflow"), idArg),
			category: "workflows",
			tags:     []string{"write"},
			run:      t.activateWorkflow,
		},
		{
			tool:     mcp.NewTool("deactivate_workflow", mcp.WithDescription("Deactivate a workflow"), idArg),
			category: "workflows",
			tags:     []string{"write"},
			run:      t.deactivateWorkflow,
		},
		{
			tool:     mcp.NewTool("delete_workflow", mcp.WithDescription("Delete a workflow"), idArg),
			category: "workflows",
			tags:     []string{"write"},
			run:      t.deleteWorkflow,
		},
	}
}

// listWorkflows loads every workflow matching the server-side filters and
// pages the summaries locally, so sorting and offsets span all pages n8n
// returns.
func (t *Toolset) listWorkflows(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	var opts n8n.ListWorkflowsOptions
	active, ok, err := boolArg(args, "active")
	if err != nil {
		return nil, err
	}
	if ok {
		opts.Active = &active
	}
	opts.Tags = stringsArg(args, "tags")

	params, err := pageParams(args)
	if err != nil {
		return nil, err
	}

	all, err := t.client.ListAllWorkflows(ctx, opts, 0)
	if err != nil {
		return nil, err
	}
	rows := make([]pagination.Record, 0, len(all))
	for _, wf := range all {
		rows = append(rows, summary(wf))
	}

	name := stringArg(args, "name")
	if params.Cursor != "" {
		if name != "" {
			rows = namedLike(rows, name)
		}
		return t.pages.CursorPaginate(rows, params, "id")
	}
	var filters map[string]any
	if name != "" {
		filters = map[string]any{"name": name}
	}
	return t.pages.PaginateArray(rows, params, pagination.Options{Filters: filters})
}

// namedLike keeps rows whose name contains substr, ignoring case.
func namedLike(rows []pagination.Record, substr string) []pagination.Record {
	substr = strings.ToLower(substr)
	kept := make([]pagination.Record, 0, len(rows))
	for _, r := range rows {
		if name, _ := r["name"].(string); strings.Contains(strings.ToLower(name), substr) {
			kept = append(kept, r)
		}
	}
	return kept
}

func pageParams(args map[string]any) (pagination.Params, error) {
	var p pagination.Params
	var err error
	if p.Limit, err = intArg(args, "limit"); err != nil {
		return p, err
	}
	if p.Offset, err = intArg(args, "offset"); err != nil {
		return p, err
	}
	p.Cursor = stringArg(args, "cursor")
	p.Direction = pagination.Direction(stringArg(args, "direction"))
	p.SortBy = stringArg(args, "sortBy")
	p.SortOrder = pagination.SortOrder(strings.ToLower(stringArg(args, "sortOrder")))
	if p.IncludeTotal, _, err = boolArg(args, "includeTotal"); err != nil {
		return p, err
	}
	return p, nil
}

// summary is the list view of a workflow.
func summary(wf n8n.Workflow) pagination.Record {
	tags := make([]any, 0, len(wf.Tags))
	for _, tag := range wf.Tags {
		tags = append(tags, tag.Name)
	}
	return pagination.Record{
		"id":        wf.ID.String(),
		"name":      wf.Name,
		"active":    wf.Active,
		"tags":      tags,
		"nodeCount": len(wf.Nodes),
		"createdAt": wf.CreatedAt,
		"updatedAt": wf.UpdatedAt,
	}
}

func (t *Toolset) getWorkflow(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	return t.client.GetWorkflow(ctx, id)
}

func (t *Toolset) createWorkflow(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	in := n8n.WorkflowInput{Name: name}
	if err := decodeWorkflowFields(args, &in); err != nil {
		return nil, err
	}
	return t.client.CreateWorkflow(ctx, in)
}

// updateWorkflow reads the current workflow and replaces only the given
// fields, since n8n's update replaces the whole definition.
func (t *Toolset) updateWorkflow(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	current, err := t.client.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	in := current.Input()
	if name := stringArg(args, "name"); name != "" {
		in.Name = name
	}
	if err := decodeWorkflowFields(args, &in); err != nil {
		return nil, err
	}
	return t.client.UpdateWorkflow(ctx, id, in)
}

// decodeWorkflowFields replaces the given fields of in. Values are decoded
// into fresh variables because unmarshaling into a map merges keys.
func decodeWorkflowFields(args map[string]any, in *n8n.WorkflowInput) error {
	var nodes []map[string]any
	if ok, err := decodeArg(args, "nodes", &nodes); err != nil {
		return err
	} else if ok {
		in.Nodes = nodes
	}
	var connections map[string]any
	if ok, err := decodeArg(args, "connections", &connections); err != nil {
		return err
	} else if ok {
		in.Connections = connections
	}
	var settings map[string]any
	if ok, err := decodeArg(args, "settings", &settings); err != nil {
		return err
	} else if ok {
		in.Settings = settings
	}
	return nil
}

func (t *Toolset) activateWorkflow(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	return t.client.ActivateWorkflow(ctx, id)
}

func (t *Toolset) deactivateWorkflow(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	return t.client.DeactivateWorkflow(ctx, id)
}

func (t *Toolset) deleteWorkflow(ctx context.Context, _ observe.ToolMeta, args map[string]any) (any, error) {
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	wf, err := t.client.DeleteWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true, "workflow": summary(*wf)}, nil
}
