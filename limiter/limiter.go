// Package limiter provides token-bucket rate limiting over a pluggable store
//
// tickerdesk uses it to cap cache-bypassing requests (force refresh) per
// client, since each one turns into upstream provider calls.
package limiter

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/KOMKZ/tickerdesk/logger"
)

// Response rate limiting decision
type Response struct {
	Allowed bool
	// RetryAfter suggested wait, valid when Allowed=false
	RetryAfter time.Duration
	Remaining  int64
	Limit      int64
}

// Limiter token bucket per resource
type Limiter struct {
	store  Store
	bucket *tokenBucket
	log    *logger.CtxZapLogger
}

// Option limiter option
type Option func(*Limiter)

// WithClock sets the clock used to refill buckets
func WithClock(c clockwork.Clock) Option {
	return func(l *Limiter) {
		l.bucket.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a limiter refilling rate tokens per second up to capacity
func New(store Store, rate float64, capacity int64, opts ...Option) *Limiter {
	l := &Limiter{
		store: store,
		bucket: &tokenBucket{
			rate:     rate,
			capacity: capacity,
			clock:    clockwork.NewRealClock(),
		},
		log: logger.GetLogger("limiter"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow takes one token for resource
func (l *Limiter) Allow(ctx context.Context, resource string) (*Response, error) {
	return l.AllowN(ctx, resource, 1)
}

// AllowN takes n tokens for resource
func (l *Limiter) AllowN(ctx context.Context, resource string, n int64) (*Response, error) {
	resp, err := l.bucket.allow(ctx, l.store, resource, n)
	if err != nil {
		l.log.WarnCtx(ctx, "limiter store failed", zap.String("resource", resource), zap.Error(err))
		return nil, err
	}
	if !resp.Allowed {
		l.log.DebugCtx(ctx, "rate limited",
			zap.String("resource", resource),
			zap.Duration("retry_after", resp.RetryAfter))
	}
	return resp, nil
}

// Reset clears the bucket of resource
func (l *Limiter) Reset(ctx context.Context, resource string) error {
	return l.store.Del(ctx, l.bucket.tokensKey(resource), l.bucket.lastRefillKey(resource))
}

// Close releases the store
func (l *Limiter) Close() error {
	return l.store.Close()
}
