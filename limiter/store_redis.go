package limiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares buckets between tickerdesk instances
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore creates a redis store
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "limiter:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) buildKey(key string) string {
	return s.keyPrefix + key
}

// GetInt64 get integer value
func (s *RedisStore) GetInt64(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, s.buildKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrKeyNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", val, err)
	}
	return n, nil
}

// SetInt64 set integer value
func (s *RedisStore) SetInt64(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return s.client.Set(ctx, s.buildKey(key), value, ttl).Err()
}

// Del delete keys
func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.buildKey(k)
	}
	return s.client.Del(ctx, full...).Err()
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
