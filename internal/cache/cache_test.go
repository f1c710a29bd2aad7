package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestShardedMemoryCache(t *testing.T) {
	c := NewShardedMemoryCache(time.Minute, time.Minute)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		c.Set(ctx, fmt.Sprintf("https://api.jikan.moe/v4/anime/%d", i), []byte(`{"data":{}}`), time.Minute)
	}
	if n := c.ItemCount(); n != 100 {
		t.Errorf("expected 100 items, got %d", n)
	}

	got, ok := c.Get(ctx, "https://api.jikan.moe/v4/anime/42")
	if !ok || string(got) != `{"data":{}}` {
		t.Errorf("unexpected get result %q %v", got, ok)
	}
	if _, ok := c.Get(ctx, "https://api.jikan.moe/v4/anime/missing"); ok {
		t.Error("expected miss")
	}
}

func TestShardedMemoryCacheExpiry(t *testing.T) {
	c := NewShardedMemoryCache(time.Minute, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { c.Close() })
	ctx := context.Background()

	c.Set(ctx, "top", []byte(`{"data":[]}`), time.Hour)
	got, ok := c.Get(ctx, "top")
	if !ok || string(got) != `{"data":[]}` {
		t.Fatalf("unexpected get result %q %v", got, ok)
	}
	if !mr.Exists("catalog:top") {
		t.Error("expected prefixed key in redis")
	}

	mr.FastForward(2 * time.Hour)
	if _, ok := c.Get(ctx, "top"); ok {
		t.Error("expected entry to expire")
	}
}

func TestRedisCacheUnavailableIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	mr.Close()

	c.Set(context.Background(), "k", []byte("v"), time.Minute)
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("expected miss when redis is down")
	}
}
