package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "catalog:"

// RedisCache is a Redis-backed cache shared between instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis server named by redisURL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog cache redis URL: %w", err)
	}
	return NewRedisCacheFromClient(redis.NewClient(opts)), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from the cache. Errors count as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		slog.Warn("Catalog cache read failed", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

// Set adds a value to the cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, duration time.Duration) {
	if err := c.client.Set(ctx, redisKeyPrefix+key, value, duration).Err(); err != nil {
		slog.Warn("Catalog cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
