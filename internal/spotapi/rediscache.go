package spotapi

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Cache is an optional Redis warm layer in front of the dataset API. Long
// backfills are restartable: pages already seen are served from Redis instead
// of re-downloading. Misses and Redis failures both fall through to the API.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCache connects a warm cache. A nil return on ping failure lets callers
// proceed without the layer.
func NewCache(addr string, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, fetching without warm cache")
		return nil
	}
	return &Cache{client: client, ttl: ttl, prefix: "settleaudit:spotapi:"}
}

// NewCacheWithClient wraps an existing client; used by tests.
func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, prefix: "settleaudit:spotapi:"}
}

// Get returns the cached payload for key, if present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis get failed")
		return nil, false
	}
	return data, true
}

// Set stores a payload under key with the cache TTL. Failures are logged and
// ignored; the warm layer is best effort.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
