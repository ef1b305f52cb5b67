package cache

import (
	"errors"
	"strings"
	"time"

	"github.com/leonardsellem/n8n-mcp-server-sub013/observe"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrKeyTooLong    = errors.New("cache: key exceeds max length")
	ErrInvalidConfig = errors.New("cache: invalid config")
)

// Defaults shared by every Manager.
const (
	DefaultMaxSize         = 1000
	DefaultTTL             = 5 * time.Minute
	DefaultCleanupInterval = 60 * time.Second
	DefaultSaveDebounce    = 5 * time.Second

	// entryOverhead approximates the per-entry bookkeeping in MemoryUsage.
	entryOverhead = 64
)

// Config configures a Manager.
type Config struct {
	// Name labels metrics and logs, e.g. "workflows".
	Name string

	// MaxSize is the number of entries kept before LRU eviction.
	// Default: 1000
	MaxSize int

	// DefaultTTL applies when Set is called with ttl <= 0.
	// Default: 5 minutes
	DefaultTTL time.Duration

	// CleanupInterval is the period of the expiry sweep started by Start.
	// Default: 60 seconds
	CleanupInterval time.Duration

	// SaveDebounce is the quiet period before a mutation is persisted.
	// Default: 5 seconds
	SaveDebounce time.Duration

	// Store persists the cache. Nil keeps the cache in memory only.
	Store Store

	Logger  observe.Logger
	Metrics observe.Metrics

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.SaveDebounce <= 0 {
		c.SaveDebounce = DefaultSaveDebounce
	}
	if c.Logger == nil {
		c.Logger = observe.NopLogger()
	}
	if c.Metrics == nil {
		c.Metrics = observe.NoopMetrics()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
