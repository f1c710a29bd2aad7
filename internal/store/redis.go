package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	redisDocPrefix = "telegram:query:"
	redisIndexKey  = "telegram:queries"
	redisScanBatch = 256
)

// RedisStore keeps one JSON document per query key and a sorted set of keys ordered
// by last update, used for substring lookups.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects to the Redis server named by a redis:// or rediss:// URL.
func OpenRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisStore(rdb), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) FindExact(ctx context.Context, query string) (*CachedQuery, error) {
	return s.get(ctx, Key(query))
}

func (s *RedisStore) FindContaining(ctx context.Context, query string) (*CachedQuery, error) {
	needle := Key(query)
	for start := int64(0); ; start += redisScanBatch {
		keys, err := s.client.ZRevRange(ctx, redisIndexKey, start, start+redisScanBatch-1).Result()
		if err != nil {
			return nil, fmt.Errorf("reading query index: %w", err)
		}
		for _, key := range keys {
			if !strings.Contains(key, needle) {
				continue
			}
			cq, err := s.get(ctx, key)
			if errors.Is(err, ErrNotFound) {
				// index entry outlived its document
				continue
			}
			return cq, err
		}
		if len(keys) < redisScanBatch {
			return nil, ErrNotFound
		}
	}
}

func (s *RedisStore) Upsert(ctx context.Context, cq CachedQuery) error {
	key := Key(cq.Query)
	doc, err := json.Marshal(cq)
	if err != nil {
		return fmt.Errorf("encoding cached query %q: %w", cq.Query, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisDocPrefix+key, doc, 0)
		pipe.ZAdd(ctx, redisIndexKey, &redis.Z{
			Score:  float64(cq.LastUpdated.UnixMilli()),
			Member: key,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("upserting cached query %q: %w", cq.Query, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, key string) (*CachedQuery, error) {
	raw, err := s.client.Get(ctx, redisDocPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("reading cached query %q: %w", key, err)
	}

	var cq CachedQuery
	if err := json.Unmarshal(raw, &cq); err != nil {
		return nil, fmt.Errorf("decoding cached query %q: %w", key, err)
	}
	return &cq, nil
}
