// Package cache provides the Redis-backed counter store used for
// brute-force login protection.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "login_attempts:"

// RedisCounterStore tracks per-IP failed login counters with a TTL. Counters
// are ephemeral: a Redis restart resets protection state, which is acceptable.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore creates a counter store from a Redis connection URL.
func NewRedisCounterStore(url string) (*RedisCounterStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisCounterStore{client: redis.NewClient(opts)}, nil
}

// Ping checks connectivity to Redis.
func (s *RedisCounterStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisCounterStore) Close() error {
	return s.client.Close()
}

// Get returns the current failure count for a key, zero if absent.
func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, attemptKeyPrefix+key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read attempt counter: %w", err)
	}
	return count, nil
}

// IncrementWithExpiry atomically increments the counter for a key and resets
// its TTL. INCR and EXPIRE run in one pipeline so concurrent failures from
// the same key never lose an increment.
func (s *RedisCounterStore) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	fullKey := attemptKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	return incr.Val(), nil
}
