package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leonardsellem/n8n-mcp-server-sub013/auth"
	"github.com/leonardsellem/n8n-mcp-server-sub013/cache"
	"github.com/leonardsellem/n8n-mcp-server-sub013/config"
	"github.com/leonardsellem/n8n-mcp-server-sub013/health"
	"github.com/leonardsellem/n8n-mcp-server-sub013/n8n"
	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
	"github.com/leonardsellem/n8n-mcp-server-sub013/pagination"
	"github.com/leonardsellem/n8n-mcp-server-sub013/resilience"
	"github.com/leonardsellem/n8n-mcp-server-sub013/secret"
	"github.com/leonardsellem/n8n-mcp-server-sub013/tools"
)

const (
	serverName      = "n8n-mcp-server"
	shutdownTimeout = 10 * time.Second
)

var opsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio",
	Long: `Serve reads MCP requests on stdin and writes responses on stdout. Logs go
to stderr. With --ops-addr (or ops.addr) an HTTP server also exposes
/healthz, /readyz, /health, /stats and /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if opsAddr != "" {
			cfg.Ops.Addr = opsAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	serveCmd.Flags().StringVar(&opsAddr, "ops-addr", "", "listen address of the ops HTTP server, e.g. :9090")
}

// app holds the wired server components.
type app struct {
	logger   observe.Logger
	observer observe.Observer
	handler  *resilience.Handler
	client   *n8n.Client
	caches   []*cache.Manager[json.RawMessage]
	redis    *redis.Client
	mcp      *server.MCPServer
	// ops is nil when the ops server is disabled.
	ops http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logs io.Writer) (_ *app, err error) {
	resolver, err := secret.NewRegistry().NewResolver(cfg.Secrets)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resolver.Close() }()
	if err := cfg.ResolveSecrets(ctx, resolver); err != nil {
		return nil, err
	}

	cfg.Observe.Version = version
	cfg.Observe.LogWriter = logs
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	a := &app{observer: obs, logger: obs.Logger()}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	a.handler = resilience.NewHandler(append(cfg.HandlerOptions(),
		resilience.WithLogger(a.logger),
		resilience.WithMetrics(metrics),
		resilience.WithTracer(obs.Tracer()),
	)...)

	a.redis = cfg.RedisClient()
	wfCfg, nodeCfg, execCfg := cfg.CacheConfigs(a.redis, a.logger, metrics)
	workflows := cache.NewManager[json.RawMessage](ctx, wfCfg)
	nodes := cache.NewManager[json.RawMessage](ctx, nodeCfg)
	executions := cache.NewManager[json.RawMessage](ctx, execCfg)
	a.caches = []*cache.Manager[json.RawMessage]{workflows, nodes, executions}
	for _, c := range a.caches {
		c.Start()
	}

	a.client, err = n8n.New(n8n.Config{
		BaseURL:    cfg.N8N.BaseURL,
		APIKey:     cfg.N8N.APIKey,
		Timeout:    cfg.N8N.Timeout,
		Handler:    a.handler,
		Operation:  cfg.OperationDefaults(),
		Workflows:  workflows,
		Executions: executions,
		Metadata:   nodes,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	toolset, err := tools.New(tools.Config{
		Client:     a.client,
		Pages:      pagination.NewManager(cfg.Pagination),
		Middleware: mw,
		Version:    version,
	})
	if err != nil {
		return nil, err
	}
	a.mcp = tools.NewServer(serverName, version, toolset)

	if cfg.Ops.Addr != "" {
		if a.ops, err = a.opsHandler(cfg.Ops); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) opsHandler(cfg config.OpsConfig) (http.Handler, error) {
	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register(
		health.NewBreakerChecker(a.handler),
		health.NewCacheChecker(a.client.CacheStats, health.CacheCheckerConfig{}),
		health.NewUpstreamChecker("n8n", a.client, 0),
		health.NewMemoryChecker(health.MemoryCheckerConfig{}),
	)

	mux := health.MuxConfig{
		Aggregator: agg,
		Breakers:   a.handler,
		Caches:     a.client.CacheStats,
		Metrics:    a.observer.MetricsHandler(),
	}
	if cfg.AuthEnabled() {
		authn, err := auth.New(auth.Config{
			APIKeys:   cfg.APIKeys,
			JWTSecret: cfg.JWTSecret,
			JWTIssuer: cfg.JWTIssuer,
		})
		if err != nil {
			return nil, err
		}
		mux.Protect = auth.Middleware(authn, a.logger)
	} else {
		a.logger.Warn(context.Background(), "ops server has no authentication configured")
	}
	return health.NewMux(mux), nil
}

// close stops the caches, which persists them, then the telemetry
// providers. It returns the first error.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for _, c := range a.caches {
		errs = append(errs, c.Stop(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.observer != nil {
		errs = append(errs, a.observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func serve(ctx context.Context, cfg *config.Config, in io.Reader, out, logs io.Writer) error {
	a, err := newApp(ctx, cfg, logs)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.close(sctx); err != nil {
			a.logger.Error(sctx, "shutdown", observe.F("error", err.Error()))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	stdio := server.NewStdioServer(a.mcp)
	stdio.SetErrorLogger(log.New(logs, "mcp: ", log.LstdFlags))
	g.Go(func() error {
		// Closing stdin ends the session and with it the ops server.
		defer cancel()
		err := stdio.Listen(gctx, in, out)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if a.ops != nil {
		srv := &http.Server{
			Addr:              cfg.Ops.Addr,
			Handler:           a.ops,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info(gctx, "ops server listening", observe.F("addr", cfg.Ops.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	a.logger.Info(ctx, "serving MCP on stdio",
		observe.F("version", version),
		observe.F("n8n", a.client.BaseURL()),
	)
	return g.Wait()
}
