package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
	"github.com/leonardsellem/n8n-mcp-server-sub013/n8n"
	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
	"github.com/leonardsellem/n8n-mcp-server-sub013/pagination"
	"github.com/leonardsellem/n8n-mcp-server-sub013/resilience"
)

// Namespace prefixes every tool ID in traces and metrics.
const Namespace = "n8n"

// ErrMissingClient is returned by New without an n8n client.
var ErrMissingClient = errors.New("tools: n8n client is required")

// Config configures a Toolset.
type Config struct {
	Client *n8n.Client
	// Pages paginates list_workflows. Default: pagination defaults.
	Pages *pagination.Manager
	// Middleware wraps every tool body. Default: no-op tracing and metrics.
	Middleware *observe.Middleware
	Version    string
}

// Toolset builds the MCP tools backed by an n8n client.
type Toolset struct {
	client  *n8n.Client
	handler *resilience.Handler
	pages   *pagination.Manager
	mw      *observe.Middleware
	version string
}

// New creates a Toolset.
func New(cfg Config) (*Toolset, error) {
	if cfg.Client == nil {
		return nil, ErrMissingClient
	}
	if cfg.Pages == nil {
		cfg.Pages = pagination.NewManager(pagination.Config{})
	}
	if cfg.Middleware == nil {
		cfg.Middleware = observe.NewMiddleware(nil, nil, nil)
	}
	return &Toolset{
		client:  cfg.Client,
		handler: cfg.Client.Handler(),
		pages:   cfg.Pages,
		mw:      cfg.Middleware,
		version: cfg.Version,
	}, nil
}

// definition is one tool before it is bound to the MCP server.
type definition struct {
	tool     mcp.Tool
	category string
	tags     []string
	run      observe.ExecuteFunc
}

// Tools returns every tool, ready for server.MCPServer.AddTools.
func (t *Toolset) Tools() []server.ServerTool {
	var defs []definition
	defs = append(defs, t.workflowTools()...)
	defs = append(defs, t.executionTools()...)
	defs = append(defs, t.opsTools()...)

	out := make([]server.ServerTool, 0, len(defs))
	for _, d := range defs {
		meta := observe.ToolMeta{
			ID:        Namespace + "." + d.tool.Name,
			Namespace: Namespace,
			Name:      d.tool.Name,
			Version:   t.version,
			Tags:      d.tags,
			Category:  d.category,
		}
		out = append(out, server.ServerTool{
			Tool:    d.tool,
			Handler: t.bind(meta, d.run),
		})
	}
	return out
}

// bind adapts a tool body to the mcp-go handler signature. Failures are
// returned as tool results with isError set, never as protocol errors.
func (t *Toolset) bind(meta observe.ToolMeta, run observe.ExecuteFunc) server.ToolHandlerFunc {
	wrapped := t.mw.Wrap(run)
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		out, err := wrapped(ctx, meta, args)
		if err != nil {
			return errorResult(meta.Name, err), nil
		}
		return jsonResult(out), nil
	}
}

// NewServer creates an MCP server exposing the toolset.
func NewServer(name, version string, t *Toolset) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTools(t.Tools()...)
	return s
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("encode", fault.NewOperationFailedError("failed to encode result", nil, err))
	}
	return mcp.NewToolResultText(string(data))
}

// errorResult renders err as domain error JSON. Errors that are not yet
// domain errors are classified first.
func errorResult(tool string, err error) *mcp.CallToolResult {
	data, merr := json.MarshalIndent(resilience.Enhance(err, tool, nil), "", "  ")
	if merr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", tool, err))
	}
	return mcp.NewToolResultError(string(data))
}
