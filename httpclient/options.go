package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/retry"
	"github.com/sony/gobreaker"
)

// DefaultTimeout per-attempt timeout when none is configured
const DefaultTimeout = 10 * time.Second

// config internal configuration
type config struct {
	// Client level
	baseURL   string
	timeout   time.Duration
	cookieJar http.CookieJar
	headers   map[string]string
	logger    *logger.CtxZapLogger

	// Request level
	queries      url.Values
	retryOpts    []retry.Option
	retryEnabled bool
	retrySet     bool

	// Breaker
	breaker *gobreaker.CircuitBreaker
}

// Option configuration option
type Option func(*config)

// WithBaseURL prefix for relative request URLs
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithTimeout per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHeader sets one default header
func WithHeader(key, value string) Option {
	return func(c *config) {
		c.headers[key] = value
	}
}

// WithHeaders sets default headers
func WithHeaders(headers map[string]string) Option {
	return func(c *config) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return WithHeader("User-Agent", ua)
}

// WithCookieJar keeps cookies between calls (sites that hand out a session cookie on the landing page)
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *config) {
		c.cookieJar = jar
	}
}

// WithLogger sets the logger used for retry and breaker events
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(c *config) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithQuery adds a query parameter to every request
func WithQuery(key, value string) Option {
	return func(c *config) {
		c.queries.Add(key, value)
	}
}

// WithRetry enables retries with the given options
func WithRetry(opts ...retry.Option) Option {
	return func(c *config) {
		c.retryEnabled = true
		c.retrySet = true
		c.retryOpts = opts
	}
}

// WithRetryDefaults retries 429, gateway errors and transient network failures;
// opts override the defaults
func WithRetryDefaults(opts ...retry.Option) Option {
	return WithRetry(append(retry.HTTPDefaults(), opts...)...)
}

// DisableRetry turns retries off
func DisableRetry() Option {
	return func(c *config) {
		c.retryEnabled = false
		c.retrySet = true
		c.retryOpts = nil
	}
}

func newConfig() *config {
	return &config{
		headers: make(map[string]string),
		queries: make(url.Values),
	}
}

func applyOptions(cfg *config, opts []Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
}

// merge returns c overridden by request level options in other
func (c *config) merge(other *config) *config {
	merged := *c
	merged.headers = make(map[string]string, len(c.headers)+len(other.headers))
	merged.queries = make(url.Values)

	for k, v := range c.headers {
		merged.headers[k] = v
	}
	for k, v := range other.headers {
		merged.headers[k] = v
	}
	for _, q := range []url.Values{c.queries, other.queries} {
		for k, vs := range q {
			for _, v := range vs {
				merged.queries.Add(k, v)
			}
		}
	}

	if other.timeout > 0 {
		merged.timeout = other.timeout
	}
	if other.retrySet {
		merged.retryEnabled = other.retryEnabled
		merged.retryOpts = other.retryOpts
	}
	if other.breaker != nil {
		merged.breaker = other.breaker
	}
	return &merged
}
