package retry

import "time"

// Config retry configuration
type Config struct {
	maxAttempts int                          // default 3
	backoff     BackoffStrategy              // default exponential from 1s
	condition   RetryCondition               // default retry everything
	onRetry     func(attempt int, err error) // called before each wait
}

func defaultConfig() *Config {
	return &Config{
		maxAttempts: 3,
		backoff:     ExponentialBackoff(time.Second, 30*time.Second, 0.2),
		condition:   AlwaysRetry(),
	}
}

// Option configuration option
type Option func(*Config)

// MaxAttempts total attempts including the first
func MaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// Backoff sets the backoff strategy
func Backoff(b BackoffStrategy) Option {
	return func(c *Config) {
		if b != nil {
			c.backoff = b
		}
	}
}

// Condition sets the retry condition
func Condition(cond RetryCondition) Option {
	return func(c *Config) {
		if cond != nil {
			c.condition = cond
		}
	}
}

// OnRetry sets the retry callback
func OnRetry(f func(attempt int, err error)) Option {
	return func(c *Config) {
		c.onRetry = f
	}
}

// HTTPDefaults retry 429 and 5xx gateway errors plus transient network failures
func HTTPDefaults() []Option {
	return []Option{
		MaxAttempts(3),
		Condition(Or(RetryOnHTTPStatus(429, 502, 503, 504), RetryOnTemporaryError())),
		Backoff(ExponentialBackoff(500*time.Millisecond, 10*time.Second, 0.2)),
	}
}
