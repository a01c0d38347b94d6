package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	platformredis "draftline/internal/platform/redis"
	"draftline/pkg/domain"
)

// NativeIDCache short-circuits the exact-match path: once a native id is
// bound to a prospect, the next lookup skips the store entirely. Misses
// and errors just fall through to the store, so the cache is never a
// correctness dependency.
type NativeIDCache interface {
	Get(ctx context.Context, source domain.Source, nativeID string) (domain.ProspectID, bool)
	Set(ctx context.Context, source domain.Source, nativeID string, id domain.ProspectID)
}

const cacheTTL = 24 * time.Hour

// RedisCache backs the native-id cache with Redis.
type RedisCache struct {
	client *platformredis.Client
}

func NewRedisCache(client *platformredis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(source domain.Source, nativeID string) string {
	return "draftline:nativeid:" + string(source) + ":" + nativeID
}

func (c *RedisCache) Get(ctx context.Context, source domain.Source, nativeID string) (domain.ProspectID, bool) {
	raw, err := c.client.Client.Get(ctx, cacheKey(source, nativeID)).Result()
	if err != nil {
		// Misses and transport errors look the same to callers.
		return domain.ProspectID{}, false
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return domain.ProspectID{}, false
	}
	return domain.ProspectID(u), true
}

func (c *RedisCache) Set(ctx context.Context, source domain.Source, nativeID string, id domain.ProspectID) {
	c.client.Client.Set(ctx, cacheKey(source, nativeID), id.String(), cacheTTL)
}

// NoopCache is used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, domain.Source, string) (domain.ProspectID, bool) {
	return domain.ProspectID{}, false
}

func (NoopCache) Set(context.Context, domain.Source, string, domain.ProspectID) {}
