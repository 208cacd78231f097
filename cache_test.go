package sessionkit

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestMemoryCacheTTLBoundary(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	if err := cache.Put(ctx, "/students/", []byte(`{"count": 2}`)); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	now = now.Add(time.Minute - time.Nanosecond)
	value, ok, err := cache.Get(ctx, "/students/")
	if err != nil || !ok {
		t.Fatalf("expected hit just inside TTL, ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(value, []byte(`{"count": 2}`)) {
		t.Fatalf("unexpected cached value: %s", value)
	}

	now = now.Add(time.Nanosecond)
	if _, ok, _ := cache.Get(ctx, "/students/"); ok {
		t.Fatalf("expected miss at exactly TTL age")
	}
}

func TestMemoryCacheOverwriteRestampsAge(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	_ = cache.Put(ctx, "k", []byte("v1"))

	now = now.Add(45 * time.Second)
	_ = cache.Put(ctx, "k", []byte("v2"))

	now = now.Add(30 * time.Second)
	value, ok, _ := cache.Get(ctx, "k")
	if !ok {
		t.Fatalf("expected hit: overwrite should restart the entry's age")
	}
	if string(value) != "v2" {
		t.Fatalf("expected latest value, got %s", value)
	}
}

func TestMemoryCacheInvalidateBySubstring(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	ctx := context.Background()

	_ = cache.Put(ctx, "/students/", []byte("a"))
	_ = cache.Put(ctx, "/students/3/", []byte("b"))
	_ = cache.Put(ctx, "/students/?page=2", []byte("c"))
	_ = cache.Put(ctx, "/teachers/", []byte("d"))

	if err := cache.Invalidate(ctx, "/students/"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	for _, key := range []string{"/students/", "/students/3/", "/students/?page=2"} {
		if _, ok, _ := cache.Get(ctx, key); ok {
			t.Fatalf("key %q survived invalidation", key)
		}
	}
	if _, ok, _ := cache.Get(ctx, "/teachers/"); !ok {
		t.Fatalf("unrelated key was dropped")
	}
}

func TestMemoryCacheInvalidateAll(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	ctx := context.Background()

	_ = cache.Put(ctx, "/students/", []byte("a"))
	_ = cache.Put(ctx, "/teachers/", []byte("b"))

	if err := cache.Invalidate(ctx, ""); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "/students/"); ok {
		t.Fatalf("expected empty cache after full invalidation")
	}
	if _, ok, _ := cache.Get(ctx, "/teachers/"); ok {
		t.Fatalf("expected empty cache after full invalidation")
	}
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	ctx := context.Background()

	original := []byte("payload")
	_ = cache.Put(ctx, "k", original)
	original[0] = 'X'

	value, ok, _ := cache.Get(ctx, "k")
	if !ok || string(value) != "payload" {
		t.Fatalf("cache shares backing array with caller, got %s", value)
	}

	value[0] = 'Y'
	again, _, _ := cache.Get(ctx, "k")
	if string(again) != "payload" {
		t.Fatalf("returned slice aliases the stored entry, got %s", again)
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewRedisCache(rdb, "", time.Minute)
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, "/students/"); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}

	if err := cache.Put(ctx, "/students/", []byte(`{"count": 1}`)); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	value, ok, err := cache.Get(ctx, "/students/")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(value) != `{"count": 1}` {
		t.Fatalf("unexpected value: %s", value)
	}

	mr.FastForward(time.Minute + time.Second)
	if _, ok, _ := cache.Get(ctx, "/students/"); ok {
		t.Fatalf("expected miss after TTL elapsed")
	}
}

func TestRedisCacheInvalidate(t *testing.T) {
	_, rdb := newTestRedis(t)
	cache := NewRedisCache(rdb, "", time.Minute)
	ctx := context.Background()

	_ = cache.Put(ctx, "/students/", []byte("a"))
	_ = cache.Put(ctx, "/students/?page=2", []byte("b"))
	_ = cache.Put(ctx, "/teachers/", []byte("c"))

	if err := cache.Invalidate(ctx, "/students/"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "/students/"); ok {
		t.Fatalf("collection key survived invalidation")
	}
	if _, ok, _ := cache.Get(ctx, "/students/?page=2"); ok {
		t.Fatalf("query variant survived invalidation")
	}
	if _, ok, _ := cache.Get(ctx, "/teachers/"); !ok {
		t.Fatalf("unrelated key was dropped")
	}

	if err := cache.Invalidate(ctx, ""); err != nil {
		t.Fatalf("full invalidate failed: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "/teachers/"); ok {
		t.Fatalf("expected empty cache after full invalidation")
	}
}
