// Package config loads the server configuration from YAML, applies
// environment overrides and validates the result.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
	"github.com/leonardsellem/n8n-mcp-server-sub013/pagination"
	"github.com/leonardsellem/n8n-mcp-server-sub013/secret"
)

// Environment variables that override the file.
const (
	EnvBaseURL  = "N8N_BASE_URL"
	EnvAPIKey   = "N8N_API_KEY"
	EnvLogLevel = "N8N_MCP_LOG_LEVEL"
	EnvOpsAddr  = "N8N_MCP_OPS_ADDR"
	EnvCacheDir = "N8N_MCP_CACHE_DIR"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the complete server configuration.
type Config struct {
	N8N        N8NConfig                 `yaml:"n8n"`
	Resilience ResilienceConfig          `yaml:"resilience"`
	Cache      CacheConfig               `yaml:"cache"`
	Pagination pagination.Config         `yaml:"pagination"`
	Observe    observe.Config            `yaml:"observe"`
	Ops        OpsConfig                 `yaml:"ops"`
	Secrets    map[string]map[string]any `yaml:"secrets,omitempty"`
}

// N8NConfig locates the n8n instance.
type N8NConfig struct {
	// BaseURL is the n8n root, e.g. http://localhost:5678. The client adds
	// /api/v1.
	BaseURL string `yaml:"baseURL"`
	// APIKey may be a literal, ${VAR} or a secretref.
	APIKey string `yaml:"apiKey"`
	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit is the sustained request rate per second; 0 disables it.
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`
	// MaxConcurrent bounds in-flight requests; 0 disables the bulkhead.
	MaxConcurrent int `yaml:"maxConcurrent"`
}

// ResilienceConfig sets the retry and circuit breaker defaults.
type ResilienceConfig struct {
	MaxRetries          int           `yaml:"maxRetries"`
	RetryDelay          time.Duration `yaml:"retryDelay"`
	MaxRetryDelay       time.Duration `yaml:"maxRetryDelay"`
	Timeout             time.Duration `yaml:"timeout"`
	Jitter              bool          `yaml:"jitter"`
	FailureThreshold    int           `yaml:"failureThreshold"`
	ResetTimeout        time.Duration `yaml:"resetTimeout"`
	HalfOpenMaxRequests int           `yaml:"halfOpenMaxRequests"`
	StatsWindow         time.Duration `yaml:"statsWindow"`
}

// CacheConfig configures the three n8n caches and their persistence.
type CacheConfig struct {
	// Dir enables file persistence, one JSON file per cache.
	Dir string `yaml:"dir"`
	// RedisAddr enables Redis persistence and takes precedence over Dir.
	RedisAddr   string `yaml:"redisAddr"`
	RedisPrefix string `yaml:"redisPrefix"`

	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	SaveDebounce    time.Duration `yaml:"saveDebounce"`

	Workflows  CacheSpec `yaml:"workflows"`
	Nodes      CacheSpec `yaml:"nodes"`
	Executions CacheSpec `yaml:"executions"`
}

// CacheSpec sizes one cache.
type CacheSpec struct {
	MaxSize int           `yaml:"maxSize"`
	TTL     time.Duration `yaml:"ttl"`
}

// OpsConfig configures the optional operations HTTP server.
type OpsConfig struct {
	// Addr enables the server when set, e.g. ":9090".
	Addr string `yaml:"addr"`
	// APIKeys and JWTSecret protect every endpoint but /healthz. Values may
	// use ${VAR} or secretref.
	APIKeys   []string `yaml:"apiKeys,omitempty"`
	JWTSecret string   `yaml:"jwtSecret,omitempty"`
	JWTIssuer string   `yaml:"jwtIssuer,omitempty"`
}

// AuthEnabled reports whether ops endpoints require credentials.
func (o OpsConfig) AuthEnabled() bool {
	return len(o.APIKeys) > 0 || o.JWTSecret != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		N8N: N8NConfig{
			BaseURL:   "http://localhost:5678",
			Timeout:   30 * time.Second,
			RateLimit: 10,
			Burst:     5,
		},
		Resilience: ResilienceConfig{
			MaxRetries:          3,
			RetryDelay:          time.Second,
			MaxRetryDelay:       30 * time.Second,
			Timeout:             30 * time.Second,
			FailureThreshold:    5,
			ResetTimeout:        60 * time.Second,
			HalfOpenMaxRequests: 1,
			StatsWindow:         time.Hour,
		},
		Cache: CacheConfig{
			RedisPrefix:     "n8n-mcp:cache",
			CleanupInterval: 60 * time.Second,
			SaveDebounce:    5 * time.Second,
			Workflows:       CacheSpec{MaxSize: 500, TTL: 5 * time.Minute},
			Nodes:           CacheSpec{MaxSize: 1000, TTL: time.Hour},
			Executions:      CacheSpec{MaxSize: 200, TTL: time.Minute},
		},
		Pagination: pagination.Config{
			DefaultLimit: pagination.DefaultLimit,
			MaxLimit:     pagination.MaxLimit,
		},
		Observe: observe.Config{
			ServiceName: "n8n-mcp-server",
			Tracing:     observe.TracingConfig{Enabled: false, Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.N8N.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.N8N.APIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Observe.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvOpsAddr); v != "" {
		c.Ops.Addr = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Dir = v
	}
}

// Validate checks the configuration and reports the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.N8N.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: n8n.baseURL %q must be an http(s) URL", ErrInvalidConfig, c.N8N.BaseURL)
	}
	if c.N8N.Timeout < 0 {
		return fmt.Errorf("%w: n8n.timeout must not be negative", ErrInvalidConfig)
	}
	if c.N8N.RateLimit < 0 || c.N8N.Burst < 0 || c.N8N.MaxConcurrent < 0 {
		return fmt.Errorf("%w: n8n rate limits must not be negative", ErrInvalidConfig)
	}

	r := c.Resilience
	if r.MaxRetries < 1 {
		return fmt.Errorf("%w: resilience.maxRetries must be at least 1", ErrInvalidConfig)
	}
	if r.RetryDelay < 0 || r.MaxRetryDelay < 0 || r.Timeout < 0 || r.ResetTimeout < 0 || r.StatsWindow < 0 {
		return fmt.Errorf("%w: resilience durations must not be negative", ErrInvalidConfig)
	}
	if r.MaxRetryDelay > 0 && r.RetryDelay > r.MaxRetryDelay {
		return fmt.Errorf("%w: resilience.retryDelay exceeds maxRetryDelay", ErrInvalidConfig)
	}
	if r.FailureThreshold < 1 {
		return fmt.Errorf("%w: resilience.failureThreshold must be at least 1", ErrInvalidConfig)
	}

	for name, spec := range map[string]CacheSpec{
		"workflows":  c.Cache.Workflows,
		"nodes":      c.Cache.Nodes,
		"executions": c.Cache.Executions,
	} {
		if spec.MaxSize < 0 || spec.TTL < 0 {
			return fmt.Errorf("%w: cache.%s must not be negative", ErrInvalidConfig, name)
		}
	}

	if c.Pagination.MaxLimit < 0 || c.Pagination.DefaultLimit < 0 {
		return fmt.Errorf("%w: pagination limits must not be negative", ErrInvalidConfig)
	}

	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ResolveSecrets replaces ${VAR} and secretref values in the credential
// fields using r. A nil r only expands environment variables.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	var err error
	if c.N8N.APIKey, err = r.ResolveValue(ctx, c.N8N.APIKey); err != nil {
		return fmt.Errorf("config: n8n.apiKey: %w", err)
	}
	if c.Ops.JWTSecret, err = r.ResolveValue(ctx, c.Ops.JWTSecret); err != nil {
		return fmt.Errorf("config: ops.jwtSecret: %w", err)
	}
	if c.Ops.APIKeys, err = r.ResolveSlice(ctx, c.Ops.APIKeys); err != nil {
		return fmt.Errorf("config: ops.apiKeys: %w", err)
	}
	return nil
}
