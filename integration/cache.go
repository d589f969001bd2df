package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the TTL-bounded upstream-read cache from spec.md §4.6, backed
// by Redis. Callers consult it before scheduling an upstream read; writes
// to the upstream invalidate the affected keys.
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache builds a Cache over an existing Redis client (or a miniredis
// instance in tests).
func NewCache(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(k string) string {
	return c.prefix + ":" + k
}

// GetCached returns the cached value for key, or ok=false on miss or
// expiry.
func (c *Cache) GetCached(ctx context.Context, key string) (map[string]any, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("integration: cache get: %w", err)
	}

	var value map[string]any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("integration: cache decode: %w", err)
	}
	return value, true, nil
}

// Set stores value under key with an absolute expiry.
func (c *Cache) Set(ctx context.Context, key string, value map[string]any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("integration: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("integration: cache set: %w", err)
	}
	return nil
}

// Invalidate removes key, used when an upstream write makes a cached read
// stale.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("integration: cache invalidate: %w", err)
	}
	return nil
}

// ClearExpired is a no-op for the Redis-backed cache: expiry is enforced
// natively by Redis's own TTL sweep. It exists to satisfy spec.md §4.6's
// ClearExpired contract and returns 0, reporting nothing to remove.
func (c *Cache) ClearExpired(context.Context) (int, error) {
	return 0, nil
}
