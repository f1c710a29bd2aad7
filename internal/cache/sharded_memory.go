package cache

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
)

const shardCount = 64 // must be a power of 2

// ShardedMemoryCache spreads keys over independent go-cache instances to reduce lock contention.
type ShardedMemoryCache struct {
	shards []*cache.Cache
}

func NewShardedMemoryCache(defaultExpiration, cleanupInterval time.Duration) *ShardedMemoryCache {
	c := &ShardedMemoryCache{
		shards: make([]*cache.Cache, shardCount),
	}
	for i := 0; i < shardCount; i++ {
		c.shards[i] = cache.New(defaultExpiration, cleanupInterval)
	}
	return c
}

func (c *ShardedMemoryCache) getShard(key string) *cache.Cache {
	return c.shards[xxhash.Sum64String(key)&(shardCount-1)]
}

func (c *ShardedMemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := c.getShard(key).Get(key); found {
		if body, ok := val.([]byte); ok {
			return body, true
		}
	}
	return nil, false
}

func (c *ShardedMemoryCache) Set(ctx context.Context, key string, value []byte, duration time.Duration) {
	c.getShard(key).Set(key, value, duration)
}

// ItemCount returns the number of unexpired entries across all shards.
func (c *ShardedMemoryCache) ItemCount() int {
	n := 0
	for _, shard := range c.shards {
		n += shard.ItemCount()
	}
	return n
}
