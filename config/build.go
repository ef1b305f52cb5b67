package config

import (
	"github.com/redis/go-redis/v9"

	"github.com/leonardsellem/n8n-mcp-server-sub013/cache"
	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
	"github.com/leonardsellem/n8n-mcp-server-sub013/resilience"
)

// HandlerOptions translates the resilience and n8n sections into options
// for resilience.NewHandler.
func (c *Config) HandlerOptions() []resilience.Option {
	r := c.Resilience
	opts := []resilience.Option{
		resilience.WithBreakerConfig(resilience.CircuitBreakerConfig{
			FailureThreshold:    r.FailureThreshold,
			ResetTimeout:        r.ResetTimeout,
			HalfOpenMaxRequests: r.HalfOpenMaxRequests,
		}),
		resilience.WithStatsWindow(r.StatsWindow),
	}
	if c.N8N.RateLimit > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:    c.N8N.RateLimit,
			Burst:   c.N8N.Burst,
			MaxWait: c.N8N.Timeout,
		})))
	}
	if c.N8N.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: c.N8N.MaxConcurrent,
			MaxWait:       c.N8N.Timeout,
		})))
	}
	return opts
}

// OperationDefaults returns the per-call defaults for reads. Callers copy
// it and set OperationName.
func (c *Config) OperationDefaults() resilience.OperationConfig {
	r := c.Resilience
	return resilience.OperationConfig{
		MaxRetries:    r.MaxRetries,
		RetryDelay:    r.RetryDelay,
		MaxRetryDelay: r.MaxRetryDelay,
		Timeout:       r.Timeout,
		Jitter:        r.Jitter,
	}
}

// CacheConfigs returns the workflow, node and execution cache settings with
// persistence attached. A non-nil client selects Redis over files.
func (c *Config) CacheConfigs(client *redis.Client, logger observe.Logger, metrics observe.Metrics) (workflows, nodes, executions cache.Config) {
	build := func(base cache.Config, spec CacheSpec) cache.Config {
		if spec.MaxSize > 0 {
			base.MaxSize = spec.MaxSize
		}
		if spec.TTL > 0 {
			base.DefaultTTL = spec.TTL
		}
		base.CleanupInterval = c.Cache.CleanupInterval
		base.SaveDebounce = c.Cache.SaveDebounce
		base.Logger = logger
		base.Metrics = metrics
		if client != nil {
			base.Store = cache.NewRedisStore(client, c.Cache.RedisPrefix, base.Name)
			return base
		}
		return cache.WithFileStore(base, c.Cache.Dir)
	}
	return build(cache.WorkflowCacheConfig(), c.Cache.Workflows),
		build(cache.NodeCacheConfig(), c.Cache.Nodes),
		build(cache.ExecutionCacheConfig(), c.Cache.Executions)
}

// RedisClient returns a client for Cache.RedisAddr, or nil when unset.
func (c *Config) RedisClient() *redis.Client {
	if c.Cache.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: c.Cache.RedisAddr})
}
