package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/leonardsellem/n8n-mcp-server-sub013/cache"
	"github.com/leonardsellem/n8n-mcp-server-sub013/secret"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.Resilience.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Resilience.MaxRetries)
	}
	if cfg.Resilience.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", cfg.Resilience.FailureThreshold)
	}
	if cfg.Cache.Workflows.MaxSize != 500 {
		t.Errorf("Workflows.MaxSize = %d, want 500", cfg.Cache.Workflows.MaxSize)
	}
	if cfg.Ops.AuthEnabled() {
		t.Error("ops auth enabled by default")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
n8n:
  baseURL: https://n8n.example.com
  apiKey: ${N8N_TEST_KEY}
  timeout: 10s
resilience:
  maxRetries: 5
  retryDelay: 250ms
cache:
  dir: /tmp/n8n-cache
  executions:
    ttl: 30s
ops:
  addr: ":9090"
  apiKeys: ["a", "b"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"baseURL", cfg.N8N.BaseURL, "https://n8n.example.com"},
		{"apiKey", cfg.N8N.APIKey, "${N8N_TEST_KEY}"},
		{"timeout", cfg.N8N.Timeout, 10 * time.Second},
		{"maxRetries", cfg.Resilience.MaxRetries, 5},
		{"retryDelay", cfg.Resilience.RetryDelay, 250 * time.Millisecond},
		// Unset keys keep their defaults.
		{"maxRetryDelay", cfg.Resilience.MaxRetryDelay, 30 * time.Second},
		{"executions ttl", cfg.Cache.Executions.TTL, 30 * time.Second},
		{"executions maxSize", cfg.Cache.Executions.MaxSize, 200},
		{"ops auth", cfg.Ops.AuthEnabled(), true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://n8n:5678")
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvOpsAddr, ":8081")
	t.Setenv(EnvCacheDir, "/var/cache/n8n")

	cfg, err := Load(writeConfig(t, "n8n:\n  baseURL: http://ignored:1\n"))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	tests := []struct {
		name, got, want string
	}{
		{"baseURL", cfg.N8N.BaseURL, "http://n8n:5678"},
		{"apiKey", cfg.N8N.APIKey, "env-key"},
		{"log level", cfg.Observe.Logging.Level, "debug"},
		{"ops addr", cfg.Ops.Addr, ":8081"},
		{"cache dir", cfg.Cache.Dir, "/var/cache/n8n"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: error = nil")
	}
	if _, err := Load(writeConfig(t, "n8n: [not, a, map")); err == nil {
		t.Error("malformed yaml: error = nil")
	}
	if _, err := Load(writeConfig(t, "resilience:\n  maxRetries: -1\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid value: error = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.N8N.BaseURL = "localhost:5678" }},
		{"ftp base url", func(c *Config) { c.N8N.BaseURL = "ftp://n8n" }},
		{"negative timeout", func(c *Config) { c.N8N.Timeout = -time.Second }},
		{"negative rate", func(c *Config) { c.N8N.RateLimit = -1 }},
		{"zero retries", func(c *Config) { c.Resilience.MaxRetries = 0 }},
		{"delay above cap", func(c *Config) { c.Resilience.RetryDelay = time.Minute }},
		{"zero threshold", func(c *Config) { c.Resilience.FailureThreshold = 0 }},
		{"negative cache size", func(c *Config) { c.Cache.Nodes.MaxSize = -1 }},
		{"negative page limit", func(c *Config) { c.Pagination.MaxLimit = -1 }},
		{"bad log level", func(c *Config) { c.Observe.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("N8N_TEST_KEY", "resolved-key")
	t.Setenv("OPS_KEY", "ops-1")

	cfg := Default()
	cfg.N8N.APIKey = "${N8N_TEST_KEY}"
	cfg.Ops.APIKeys = []string{"secretref:env:OPS_KEY", "literal"}
	cfg.Ops.JWTSecret = "secretref:env:N8N_TEST_KEY"

	if err := cfg.ResolveSecrets(context.Background(), secret.NewResolver(true, secret.EnvProvider{})); err != nil {
		t.Fatalf("ResolveSecrets() = %v", err)
	}
	if cfg.N8N.APIKey != "resolved-key" {
		t.Errorf("APIKey = %q", cfg.N8N.APIKey)
	}
	if want := []string{"ops-1", "literal"}; !slices.Equal(cfg.Ops.APIKeys, want) {
		t.Errorf("APIKeys = %v, want %v", cfg.Ops.APIKeys, want)
	}
	if cfg.Ops.JWTSecret != "resolved-key" {
		t.Errorf("JWTSecret = %q", cfg.Ops.JWTSecret)
	}

	cfg.N8N.APIKey = "${N8N_TEST_UNSET_VAR}"
	if err := cfg.ResolveSecrets(context.Background(), nil); err == nil {
		t.Error("unset variable: error = nil")
	}
}

func TestHandlerOptionsAndDefaults(t *testing.T) {
	cfg := Default()
	cfg.N8N.MaxConcurrent = 4
	if got := len(cfg.HandlerOptions()); got != 4 {
		t.Errorf("HandlerOptions() has %d options, want 4", got)
	}

	cfg.N8N.RateLimit = 0
	cfg.N8N.MaxConcurrent = 0
	if got := len(cfg.HandlerOptions()); got != 2 {
		t.Errorf("HandlerOptions() without admission gates has %d options, want 2", got)
	}

	op := cfg.OperationDefaults()
	if op.MaxRetries != 3 || op.RetryDelay != time.Second {
		t.Errorf("OperationDefaults() = %+v", op)
	}
	if op.OperationName != "" {
		t.Errorf("OperationName = %q, want empty", op.OperationName)
	}
}

func TestCacheConfigs(t *testing.T) {
	cfg := Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.Workflows.MaxSize = 42

	wf, nodes, execs := cfg.CacheConfigs(nil, nil, nil)
	if wf.MaxSize != 42 {
		t.Errorf("workflows MaxSize = %d", wf.MaxSize)
	}
	if nodes.DefaultTTL != time.Hour {
		t.Errorf("nodes DefaultTTL = %v", nodes.DefaultTTL)
	}
	if execs.Name != "executions" {
		t.Errorf("executions Name = %q", execs.Name)
	}
	fs, ok := wf.Store.(*cache.FileStore)
	if !ok {
		t.Fatalf("workflows store = %T, want *cache.FileStore", wf.Store)
	}
	if want := filepath.Join(cfg.Cache.Dir, "workflows.json"); fs.Path() != want {
		t.Errorf("Path() = %q, want %q", fs.Path(), want)
	}

	mr := miniredis.RunT(t)
	cfg.Cache.RedisAddr = mr.Addr()
	client := cfg.RedisClient()
	if client == nil {
		t.Fatal("RedisClient() = nil with an address set")
	}
	defer func() { _ = client.Close() }()

	wf, _, _ = cfg.CacheConfigs(client, nil, nil)
	rs, ok := wf.Store.(*cache.RedisStore)
	if !ok {
		t.Fatalf("workflows store = %T, want *cache.RedisStore", wf.Store)
	}
	if got := rs.Key(); got != "n8n-mcp:cache:workflows" {
		t.Errorf("Key() = %q", got)
	}
}
