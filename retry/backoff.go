package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy delay before retry N (attempt starts at 1)
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

type exponentialBackoff struct {
	base    time.Duration
	ceiling time.Duration
	jitter  float64
}

// ExponentialBackoff doubles from base up to ceiling, spread by ±jitter
//
//	base=500ms ceiling=10s: 500ms, 1s, 2s, 4s, 8s, 10s ...
//
// Provider clients pass their per-attempt timeout as the ceiling.
// A zero base never waits.
func ExponentialBackoff(base, ceiling time.Duration, jitter float64) BackoffStrategy {
	if ceiling < base {
		ceiling = base
	}
	return exponentialBackoff{base: base, ceiling: ceiling, jitter: math.Max(0, math.Min(jitter, 1))}
}

func (b exponentialBackoff) Next(attempt int) time.Duration {
	if attempt <= 0 || b.base <= 0 {
		return 0
	}
	delay := math.Min(float64(b.base)*math.Pow(2, float64(attempt-1)), float64(b.ceiling))
	if b.jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * b.jitter
	}
	// jitter never pushes a wait past the ceiling
	return time.Duration(math.Max(0, math.Min(delay, float64(b.ceiling))))
}
