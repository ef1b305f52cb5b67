package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/leonardsellem/n8n-mcp-server-sub013/cache"
	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
	"github.com/leonardsellem/n8n-mcp-server-sub013/resilience"
)

// APIKeyHeader carries the n8n API key.
const APIKeyHeader = "X-N8N-API-KEY"

// Config configures a Client.
type Config struct {
	// BaseURL is the n8n root or its /api/v1 URL. Required.
	BaseURL string
	APIKey  string

	// Timeout bounds each HTTP request when HTTPClient is nil.
	// Default: 30 seconds
	Timeout    time.Duration
	HTTPClient *http.Client

	// Handler runs every request. Default: a Handler with default settings.
	Handler *resilience.Handler
	// Operation holds the retry defaults; OperationName is set per call.
	Operation resilience.OperationConfig

	// Caches hold raw response bodies. Nil caches are created in memory
	// from the cache presets.
	Workflows  *cache.Manager[json.RawMessage]
	Executions *cache.Manager[json.RawMessage]
	// Metadata holds rarely changing data such as tags.
	Metadata *cache.Manager[json.RawMessage]

	Logger observe.Logger
}

// Client is an n8n REST API client. Every request runs through the
// resilience Handler under an operation name of the form "n8n.<call>";
// reads are served from the caches, writes invalidate them.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	handler  *resilience.Handler
	defaults resilience.OperationConfig
	logger   observe.Logger
	keyer    *cache.DefaultKeyer

	workflows  *cache.Loader[json.RawMessage]
	executions *cache.Loader[json.RawMessage]
	metadata   *cache.Loader[json.RawMessage]
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	base, err := apiBase(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if cfg.Handler == nil {
		cfg.Handler = resilience.NewHandler()
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	ctx := context.Background()
	if cfg.Workflows == nil {
		cfg.Workflows = cache.NewManager[json.RawMessage](ctx, cache.WorkflowCacheConfig())
	}
	if cfg.Executions == nil {
		cfg.Executions = cache.NewManager[json.RawMessage](ctx, cache.ExecutionCacheConfig())
	}
	if cfg.Metadata == nil {
		cfg.Metadata = cache.NewManager[json.RawMessage](ctx, cache.NodeCacheConfig())
	}

	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		http:       httpClient,
		handler:    cfg.Handler,
		defaults:   cfg.Operation,
		logger:     cfg.Logger,
		keyer:      cache.NewDefaultKeyer(),
		workflows:  cache.NewLoader(cfg.Workflows),
		executions: cache.NewLoader(cfg.Executions),
		metadata:   cache.NewLoader(cfg.Metadata),
	}, nil
}

// apiBase normalizes raw to ".../api/v1".
func apiBase(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", ErrMissingBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("n8n: invalid base URL %q", raw)
	}
	if !strings.HasSuffix(u.Path, "/api/v1") {
		u.Path = strings.TrimRight(u.Path, "/") + "/api/v1"
	}
	return u.String(), nil
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Handler returns the resilience handler shared by every request.
func (c *Client) Handler() *resilience.Handler { return c.handler }

// CacheStats returns statistics of the workflow, execution and metadata
// caches.
func (c *Client) CacheStats() []cache.Stats {
	return []cache.Stats{
		c.workflows.Cache().Stats(),
		c.executions.Cache().Stats(),
		c.metadata.Cache().Stats(),
	}
}

// ClearCaches empties every cache and persists the empty state right away,
// so a restart does not bring the cleared entries back.
func (c *Client) ClearCaches(ctx context.Context) error {
	var errs []error
	for _, l := range []*cache.Loader[json.RawMessage]{c.workflows, c.executions, c.metadata} {
		l.Cache().Clear()
		errs = append(errs, l.Cache().Flush(ctx))
	}
	return errors.Join(errs...)
}

func (c *Client) operation(name string, ctx map[string]any) resilience.OperationConfig {
	op := c.defaults
	op.OperationName = "n8n." + name
	op.Context = ctx
	return op
}

// request is one HTTP exchange with n8n.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
}

// send performs a single HTTP attempt and returns the raw 2xx body.
func (c *Client) send(ctx context.Context, r request) (json.RawMessage, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("n8n: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("n8n: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("n8n %s %s: %w", r.method, r.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, responseError(r.method, r.path, resp.StatusCode, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("n8n %s %s: read response: %w", r.method, r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("null")
	}
	return data, nil
}

// call runs r through the handler.
func (c *Client) call(ctx context.Context, op resilience.OperationConfig, r request) (json.RawMessage, error) {
	return resilience.Do(ctx, c.handler, op, func(ctx context.Context) (json.RawMessage, error) {
		return c.send(ctx, r)
	})
}

// read serves r from loader, fetching through the handler on a miss.
func (c *Client) read(ctx context.Context, loader *cache.Loader[json.RawMessage], name string, params map[string]any, r request, out any) error {
	key, err := c.keyer.Key(name, params)
	if err != nil {
		return err
	}
	raw, err := loader.GetOrLoad(ctx, key, 0, func(ctx context.Context) (json.RawMessage, error) {
		return c.call(ctx, c.operation(name, params), r)
	})
	if err != nil {
		return err
	}
	return decode(raw, out)
}

func decode(raw json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("n8n: decode response: %w", err)
	}
	return nil
}

// Ping checks that n8n answers an authenticated request. It bypasses the
// caches and makes a single attempt.
func (c *Client) Ping(ctx context.Context) error {
	op := c.operation("ping", nil)
	op.MaxRetries = 1
	_, err := c.call(ctx, op, request{
		method: http.MethodGet,
		path:   "/workflows",
		query:  url.Values{"limit": {"1"}},
	})
	return err
}
