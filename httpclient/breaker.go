package httpclient

import (
	"context"
	"time"

	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig circuit breaker settings for one upstream
type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	MaxRequests         uint32        `mapstructure:"max_requests"`         // trial requests allowed while half-open
	Interval            time.Duration `mapstructure:"interval"`             // closed-state counter reset, 0 = never
	Timeout             time.Duration `mapstructure:"timeout"`              // open -> half-open
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"` // failures that trip the breaker
}

// DefaultBreakerConfig returns the default breaker configuration
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:             true,
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// NewBreaker builds a gobreaker.CircuitBreaker that trips after
// cfg.ConsecutiveFailures failures in a row
func NewBreaker(name string, cfg BreakerConfig, log *logger.CtxZapLogger) *gobreaker.CircuitBreaker {
	if log == nil {
		log = logger.GetLogger("httpclient")
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = DefaultBreakerConfig().ConsecutiveFailures
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// WithBreaker protects requests with cb
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *config) {
		c.breaker = cb
	}
}

// executeWithBreaker runs one attempt through the breaker
// Only transport errors and 5xx count as failures; a 4xx is the caller's problem
func (c *Client) executeWithBreaker(ctx context.Context, req *Request, cfg *config) (*Response, error) {
	result, err := cfg.breaker.Execute(func() (interface{}, error) {
		resp, err := c.doRequest(ctx, req, cfg)
		if err != nil {
			return nil, err
		}
		if resp.IsServerError() {
			return resp, newStatusError(resp)
		}
		return resp, nil
	})
	if err != nil {
		// A 5xx is still a response: hand it back with the status error
		if resp, ok := result.(*Response); ok && resp != nil {
			return resp, err
		}
		return nil, err
	}
	return result.(*Response), nil
}
