// Package cache is the Redis read cache: cache-aside JSON helpers, entity
// keys and generation-counted list keys. A Cache without a client is a
// pass-through, so reads keep working when Redis is down.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"snapgram/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client. The zero value and a nil *Cache are valid
// and cache nothing.
type Cache struct {
	client *redis.Client
}

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// New wraps an existing client and installs the error metrics hook.
func New(client *redis.Client) *Cache {
	if client == nil {
		return &Cache{}
	}
	client.AddHook(metricsHook{})
	return &Cache{client: client}
}

// InitRedis connects to addr, which is either host:port or a redis:// URL.
// When Redis is unreachable it logs a warning and returns a pass-through
// Cache.
func InitRedis(ctx context.Context, addr string) *Cache {
	if addr == "" {
		return &Cache{}
	}
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "invalid REDIS_URL, continuing without cache",
				"error", err)
			return &Cache{}
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "redis unavailable, continuing without cache",
			"error", err)
		_ = client.Close()
		return &Cache{}
	}
	observability.GlobalLogger.InfoContext(ctx, "redis connected")
	return New(client)
}

// Client returns the underlying client, or nil.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Ping checks Redis connectivity. A disabled cache reports an error.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
