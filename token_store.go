package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var errTokenStoreUnavailable = errors.New("token store backend unavailable")

/*
====================================
MEMORY TOKEN STORE
====================================
*/

// MemoryTokenStore keeps the token pair in process memory. It is the
// default store and suits single-process clients that accept losing the
// session on restart.
type MemoryTokenStore struct {
	mu   sync.RWMutex
	pair *TokenPair
}

// NewMemoryTokenStore describes the newmemorytokenstore operation and its observable behavior.
//
// NewMemoryTokenStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryTokenStore) Save(_ context.Context, pair TokenPair) error {
	s.mu.Lock()
	s.pair = &TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	s.mu.Unlock()
	return nil
}

// Load describes the load operation and its observable behavior.
//
// Load may return an error when input validation, dependency calls, or security checks fail.
// Load does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryTokenStore) Load(_ context.Context) (*TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return nil, nil
	}
	out := *s.pair
	return &out, nil
}

// Clear describes the clear operation and its observable behavior.
//
// Clear may return an error when input validation, dependency calls, or security checks fail.
// Clear does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.pair = nil
	s.mu.Unlock()
	return nil
}

/*
====================================
REDIS TOKEN STORE
====================================
*/

// RedisTokenStore persists the token pair in Redis under a per-client key,
// for bot and backend-for-frontend deployments where the session must
// survive process restarts. The pair is stored as a hash with an optional
// TTL covering the refresh token's useful lifetime.
type RedisTokenStore struct {
	redis    *redis.Client
	prefix   string
	clientID string
	ttl      time.Duration
}

// NewRedisTokenStore describes the newredistokenstore operation and its observable behavior.
//
// NewRedisTokenStore may return an error when input validation, dependency calls, or security checks fail.
// NewRedisTokenStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisTokenStore(client *redis.Client, prefix, clientID string, ttl time.Duration) *RedisTokenStore {
	if prefix == "" {
		prefix = "sk:tokens:"
	}
	return &RedisTokenStore{
		redis:    client,
		prefix:   prefix,
		clientID: clientID,
		ttl:      ttl,
	}
}

func (s *RedisTokenStore) key() string {
	return s.prefix + s.clientID
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisTokenStore) Save(ctx context.Context, pair TokenPair) error {
	if err := s.redis.HSet(ctx, s.key(), "access", pair.AccessToken, "refresh", pair.RefreshToken).Err(); err != nil {
		return fmt.Errorf("%w: %v", errTokenStoreUnavailable, err)
	}
	if s.ttl > 0 {
		if err := s.redis.Expire(ctx, s.key(), s.ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", errTokenStoreUnavailable, err)
		}
	}
	return nil
}

// Load describes the load operation and its observable behavior.
//
// Load may return an error when input validation, dependency calls, or security checks fail.
// Load does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisTokenStore) Load(ctx context.Context) (*TokenPair, error) {
	m, err := s.redis.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTokenStoreUnavailable, err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return &TokenPair{
		AccessToken:  m["access"],
		RefreshToken: m["refresh"],
	}, nil
}

// Clear describes the clear operation and its observable behavior.
//
// Clear may return an error when input validation, dependency calls, or security checks fail.
// Clear does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", errTokenStoreUnavailable, err)
	}
	return nil
}
