package cache

import (
	"path/filepath"
	"time"
)

// Preset names.
const (
	WorkflowCacheName  = "workflows"
	NodeCacheName      = "nodes"
	ExecutionCacheName = "executions"
)

// WorkflowCacheConfig holds workflow definitions: few, large and edited
// occasionally.
func WorkflowCacheConfig() Config {
	return Config{Name: WorkflowCacheName, MaxSize: 500, DefaultTTL: 5 * time.Minute}
}

// NodeCacheConfig holds node type metadata, which changes only when n8n is
// upgraded.
func NodeCacheConfig() Config {
	return Config{Name: NodeCacheName, MaxSize: 1000, DefaultTTL: time.Hour}
}

// ExecutionCacheConfig holds execution records, which change quickly while a
// workflow runs.
func ExecutionCacheConfig() Config {
	return Config{Name: ExecutionCacheName, MaxSize: 200, DefaultTTL: time.Minute}
}

// WithFileStore returns cfg persisted to <dir>/<name>.json. An empty dir
// leaves cfg unchanged.
func WithFileStore(cfg Config, dir string) Config {
	if dir == "" {
		return cfg
	}
	cfg.Store = NewFileStore(filepath.Join(dir, cfg.Name+".json"))
	return cfg
}
