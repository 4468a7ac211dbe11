package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"snapgram/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix        = "user:%s"
	CurrentUserKeyPrefix = "user:current:%s"
	PostKeyPrefix        = "post:%s"
)

// Scopes of generation-counted list keys.
const (
	ScopePosts = "posts"
	ScopeUsers = "users"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
	ListTTL = 2 * time.Minute
)

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func CurrentUserKey(accountID string) string {
	return fmt.Sprintf(CurrentUserKeyPrefix, accountID)
}

func PostKey(postID string) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func generationKey(scope string) string {
	return "gen:" + scope
}

// ListKey returns the key of a list query in scope, e.g.
// "posts:g3:recent". Bumping the scope's generation makes every earlier
// list key unreachable, so lists never need to be enumerated to be
// invalidated. ok is false when the generation cannot be read.
func (c *Cache) ListKey(ctx context.Context, scope, suffix string) (key string, ok bool) {
	if !c.Enabled() {
		return "", false
	}
	gen, err := c.client.Get(ctx, generationKey(scope)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.GlobalLogger.WarnContext(ctx, "cache generation read failed", "scope", scope, "error", err)
		return "", false
	}
	return fmt.Sprintf("%s:g%s:%s", scope, strconv.FormatInt(gen, 10), suffix), true
}

// AsideList is Aside over the current list key of scope. When the key
// cannot be resolved fetch runs uncached.
func (c *Cache) AsideList(ctx context.Context, scope, suffix string, dest any, fetch func() error) error {
	key, ok := c.ListKey(ctx, scope, suffix)
	if !ok {
		return fetch()
	}
	return c.Aside(ctx, key, dest, ListTTL, fetch)
}

// Bump advances the generation of scope.
func (c *Cache) Bump(ctx context.Context, scope string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, generationKey(scope)).Err(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache generation bump failed", "scope", scope, "error", err)
	}
}

// InvalidatePost drops the cached post and every cached post list.
func (c *Cache) InvalidatePost(ctx context.Context, postID string) {
	c.Invalidate(ctx, PostKey(postID))
	c.Bump(ctx, ScopePosts)
}

// InvalidateUser drops the cached user, its current-user entry and every
// cached user list.
func (c *Cache) InvalidateUser(ctx context.Context, userID, accountID string) {
	keys := []string{UserKey(userID)}
	if accountID != "" {
		keys = append(keys, CurrentUserKey(accountID))
	}
	c.Invalidate(ctx, keys...)
	c.Bump(ctx, ScopeUsers)
}
