package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// tokenBucket keeps two values per resource: tokens left and last refill time
// Updates are serialized in-process; across processes sharing a redis store
// concurrent refills may over-admit slightly.
type tokenBucket struct {
	rate     float64
	capacity int64
	clock    clockwork.Clock
	mu       sync.Mutex
}

func (b *tokenBucket) allow(ctx context.Context, store Store, resource string, n int64) (*Response, error) {
	if n <= 0 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	tokensKey := b.tokensKey(resource)
	lastRefillKey := b.lastRefillKey(resource)

	tokens, err := store.GetInt64(ctx, tokensKey)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("get tokens: %w", err)
	}
	lastRefillNano, err2 := store.GetInt64(ctx, lastRefillKey)
	if err2 != nil && !errors.Is(err2, ErrKeyNotFound) {
		return nil, fmt.Errorf("get last refill: %w", err2)
	}

	refilledAt := now
	if err != nil || err2 != nil {
		tokens = b.capacity
	} else {
		last := time.Unix(0, lastRefillNano)
		gained := int64(b.rate * now.Sub(last).Seconds())
		switch {
		case tokens+gained >= b.capacity:
			tokens = b.capacity
		default:
			// carry the fractional token over to the next call
			tokens += gained
			refilledAt = last.Add(time.Duration(float64(gained) / b.rate * float64(time.Second)))
		}
	}

	resp := &Response{Limit: b.capacity}
	if tokens >= n {
		tokens -= n
		resp.Allowed = true
	} else {
		resp.RetryAfter = time.Duration(float64(n-tokens) / b.rate * float64(time.Second))
	}
	resp.Remaining = tokens

	ttl := b.idleTTL()
	if err := store.SetInt64(ctx, tokensKey, tokens, ttl); err != nil {
		return nil, fmt.Errorf("set tokens: %w", err)
	}
	if err := store.SetInt64(ctx, lastRefillKey, refilledAt.UnixNano(), ttl); err != nil {
		return nil, fmt.Errorf("set last refill: %w", err)
	}
	return resp, nil
}

// idleTTL after this long the bucket would be full again anyway
func (b *tokenBucket) idleTTL() time.Duration {
	if b.rate <= 0 {
		return 0
	}
	full := time.Duration(float64(b.capacity) / b.rate * float64(time.Second))
	return full + time.Minute
}

func (b *tokenBucket) tokensKey(resource string) string {
	return "token:" + resource + ":tokens"
}

func (b *tokenBucket) lastRefillKey(resource string) string {
	return "token:" + resource + ":last_refill"
}
