package integration

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client, "test")
}

func TestCacheMissThenSet(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)

	_, ok, err := cache.GetCached(ctx, "cpf:52998224725")
	if err != nil {
		t.Fatalf("GetCached: %v", err)
	}
	if ok {
		t.Fatal("expected miss on empty cache")
	}

	value := map[string]any{"nome_razaosocial": "Alice"}
	if err := cache.Set(ctx, "cpf:52998224725", value, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := cache.GetCached(ctx, "cpf:52998224725")
	if err != nil {
		t.Fatalf("GetCached: %v", err)
	}
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got["nome_razaosocial"] != "Alice" {
		t.Fatalf("unexpected cached value: %v", got)
	}
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)

	if err := cache.Set(ctx, "ticket:1", map[string]any{"status": "open"}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Invalidate(ctx, "ticket:1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	_, ok, err := cache.GetCached(ctx, "ticket:1")
	if err != nil {
		t.Fatalf("GetCached: %v", err)
	}
	if ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewCache(client, "test")

	if err := cache.Set(ctx, "cpf:52998224725", map[string]any{"a": 1.0}, time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Second)

	_, ok, err := cache.GetCached(ctx, "cpf:52998224725")
	if err != nil {
		t.Fatalf("GetCached: %v", err)
	}
	if ok {
		t.Fatal("expected expiry to evict the key")
	}
}
