package limiter

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound key absent or expired
var ErrKeyNotFound = errors.New("key not found")

// Store bucket state storage
type Store interface {
	// GetInt64 returns ErrKeyNotFound for absent keys
	GetInt64(ctx context.Context, key string) (int64, error)

	// SetInt64 stores value; ttl 0 means no expiry
	SetInt64(ctx context.Context, key string, value int64, ttl time.Duration) error

	Del(ctx context.Context, keys ...string) error

	Close() error
}
