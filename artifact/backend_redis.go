package artifact

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each artifact blob as a single string value
// SET replaces the value atomically
type RedisBackend struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisBackend creates a redis backend; ttl 0 keeps artifacts forever
func NewRedisBackend(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// Name backend name
func (b *RedisBackend) Name() string {
	return "redis"
}

func (b *RedisBackend) buildKey(kind Kind, key string) string {
	return b.keyPrefix + string(kind) + ":" + key
}

// Read GET
func (b *RedisBackend) Read(ctx context.Context, kind Kind, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.buildKey(kind, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, ErrStoreRead.Wrap(err)
	}
	return data, nil
}

// Head GETRANGE over the header window
func (b *RedisBackend) Head(ctx context.Context, kind Kind, key string) ([]byte, error) {
	fullKey := b.buildKey(kind, key)
	data, err := b.client.GetRange(ctx, fullKey, 0, maxHeaderLen-1).Bytes()
	if err != nil {
		return nil, ErrStoreRead.Wrap(err)
	}
	// GETRANGE on a missing key returns ""
	if len(data) == 0 {
		n, err := b.client.Exists(ctx, fullKey).Result()
		if err != nil {
			return nil, ErrStoreRead.Wrap(err)
		}
		if n == 0 {
			return nil, ErrNotFound
		}
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i+1]
	}
	return data, nil
}

// Write SET with the configured ttl
func (b *RedisBackend) Write(ctx context.Context, kind Kind, key string, data []byte) error {
	if err := b.client.Set(ctx, b.buildKey(kind, key), data, b.ttl).Err(); err != nil {
		return ErrStoreWrite.Wrap(err)
	}
	return nil
}

// Exists EXISTS
func (b *RedisBackend) Exists(ctx context.Context, kind Kind, key string) (bool, error) {
	n, err := b.client.Exists(ctx, b.buildKey(kind, key)).Result()
	if err != nil {
		return false, ErrStoreRead.Wrap(err)
	}
	return n > 0, nil
}

// Delete DEL
func (b *RedisBackend) Delete(ctx context.Context, kind Kind, key string) error {
	if err := b.client.Del(ctx, b.buildKey(kind, key)).Err(); err != nil {
		return ErrStoreWrite.Wrap(err)
	}
	return nil
}

// Ping PING
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return ErrStoreRead.Wrap(err)
	}
	return nil
}

// Close closes the client owned by the backend
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
