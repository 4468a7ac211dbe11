package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"snapgram/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss it calls fetch, which must populate
// dest, and stores the result with ttl. Redis failures are logged and
// treated as misses, so only fetch errors are returned.
func (c *Cache) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if !c.Enabled() {
		return fetch()
	}

	found, err := c.GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.CacheRequestsTotal.WithLabelValues("error").Inc()
		observability.GlobalLogger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	case found:
		observability.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return nil
	default:
		observability.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := c.SetJSON(ctx, key, dest, ttl); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

// Invalidate deletes keys, best-effort.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}
