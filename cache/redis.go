package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the snapshot under a single Redis key so several server
// processes can warm their caches from the same state.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisTTL expires the stored snapshot after ttl. Default: no expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore creates a store writing to "<prefix>:<name>".
func NewRedisStore(client *redis.Client, prefix, name string, opts ...RedisOption) *RedisStore {
	if prefix == "" {
		prefix = "n8n-mcp:cache"
	}
	s := &RedisStore{client: client, key: prefix + ":" + name}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key holding the snapshot.
func (s *RedisStore) Key() string { return s.key }

// Load reads the snapshot. A missing key is not an error.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: redis get %s: %w", s.key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", s.key, err)
	}
	return &snap, nil
}

// Save overwrites the snapshot.
func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %s: %w", s.key, err)
	}
	return nil
}
