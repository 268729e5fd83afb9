package provider

import (
	"time"

	"github.com/KOMKZ/tickerdesk/httpclient"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/retry"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DefaultTimeout per-call timeout applied to every provider request
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent browser-like agent; both upstreams reject bare Go clients
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// RetryConfig retry settings
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// Config one upstream client
type Config struct {
	BaseURL   string                   `mapstructure:"base_url"`
	Timeout   time.Duration            `mapstructure:"timeout"`
	UserAgent string                   `mapstructure:"user_agent"`
	Retry     RetryConfig              `mapstructure:"retry"`
	Breaker   httpclient.BreakerConfig `mapstructure:"breaker"`
}

// ApplyDefaults fills zero values; baseURL is the upstream's public endpoint
func (c *Config) ApplyDefaults(baseURL string) {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.Backoff <= 0 {
		c.Retry.Backoff = 500 * time.Millisecond
	}
	if c.Breaker.ConsecutiveFailures == 0 {
		enabled := c.Breaker.Enabled
		c.Breaker = httpclient.DefaultBreakerConfig()
		c.Breaker.Enabled = enabled
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&c.Retry, validation.By(func(any) error {
			return validation.Validate(c.Retry.MaxAttempts, validation.Min(1), validation.Max(10))
		})),
	)
	if err != nil {
		return ErrConfig.Wrap(err)
	}
	return nil
}

// ClientOptions builds httpclient options for a named upstream
func (c Config) ClientOptions(name string, log *logger.CtxZapLogger) []httpclient.Option {
	opts := []httpclient.Option{
		httpclient.WithBaseURL(c.BaseURL),
		httpclient.WithTimeout(c.Timeout),
		httpclient.WithUserAgent(c.UserAgent),
		httpclient.WithLogger(log),
	}
	if c.Retry.MaxAttempts > 1 {
		opts = append(opts, httpclient.WithRetryDefaults(
			retry.MaxAttempts(c.Retry.MaxAttempts),
			retry.Backoff(retry.ExponentialBackoff(c.Retry.Backoff, c.Timeout, 0.2)),
		))
	}
	if c.Breaker.Enabled {
		opts = append(opts, httpclient.WithBreaker(httpclient.NewBreaker(name, c.Breaker, log)))
	}
	return opts
}
