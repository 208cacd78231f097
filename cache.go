package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var errCacheUnavailable = errors.New("response cache backend unavailable")

/*
====================================
MEMORY CACHE
====================================
*/

type cacheEntry struct {
	value    []byte
	storedAt time.Time
}

// MemoryCache is the default ResponseCache: a TTL-bounded in-process map.
// Expired entries are dropped lazily on read; an entry is never returned at
// or past its TTL.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration

	now func() time.Time // test hook
}

// NewMemoryCache describes the newmemorycache operation and its observable behavior.
//
// NewMemoryCache does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Put describes the put operation and its observable behavior.
//
// Put may return an error when input validation, dependency calls, or security checks fail.
// Put does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *MemoryCache) Put(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.entries[key] = cacheEntry{value: stored, storedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Invalidate describes the invalidate operation and its observable behavior.
//
// Invalidate may return an error when input validation, dependency calls, or security checks fail.
// Invalidate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *MemoryCache) Invalidate(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix == "" {
		c.entries = make(map[string]cacheEntry)
		return nil
	}
	for key := range c.entries {
		if strings.Contains(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

/*
====================================
REDIS CACHE
====================================
*/

// RedisCache is a ResponseCache sharing entries across processes. TTL
// enforcement is delegated to Redis key expiry; invalidation scans the
// cache namespace for matching keys.
type RedisCache struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache describes the newrediscache operation and its observable behavior.
//
// NewRedisCache may return an error when input validation, dependency calls, or security checks fail.
// NewRedisCache does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "sk:cache:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.redis.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", errCacheUnavailable, err)
	}
	return value, true, nil
}

// Put describes the put operation and its observable behavior.
//
// Put may return an error when input validation, dependency calls, or security checks fail.
// Put does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *RedisCache) Put(ctx context.Context, key string, value []byte) error {
	if err := c.redis.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errCacheUnavailable, err)
	}
	return nil
}

// Invalidate describes the invalidate operation and its observable behavior.
//
// Invalidate may return an error when input validation, dependency calls, or security checks fail.
// Invalidate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *RedisCache) Invalidate(ctx context.Context, prefix string) error {
	pattern := c.prefix + "*"
	if prefix != "" {
		pattern = c.prefix + "*" + prefix + "*"
	}

	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", errCacheUnavailable, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", errCacheUnavailable, err)
	}
	return nil
}
