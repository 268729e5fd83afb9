// Package httpclient is the outbound HTTP client used by the data providers:
// per-attempt timeouts, retries, an optional circuit breaker and buffered responses
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/retry"
	"go.uber.org/zap"
)

// Client HTTP client
type Client struct {
	httpClient *http.Client
	config     *config
}

// NewClient creates a Client
func NewClient(opts ...Option) *Client {
	cfg := newConfig()
	applyOptions(cfg, opts)

	if cfg.timeout <= 0 {
		cfg.timeout = DefaultTimeout
	}
	if cfg.logger == nil {
		cfg.logger = logger.GetLogger("httpclient")
	}

	return &Client{
		// Timeouts are applied per attempt through the request context
		httpClient: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Jar:       cfg.cookieJar,
		},
		config: cfg,
	}
}

// Do performs req
// A non-2xx final response is returned together with a *StatusError
func (c *Client) Do(ctx context.Context, req *Request, opts ...Option) (*Response, error) {
	reqCfg := newConfig()
	applyOptions(reqCfg, opts)
	cfg := c.config.merge(reqCfg)

	if ctx == nil {
		ctx = context.Background()
	}
	for k, vs := range cfg.queries {
		for _, v := range vs {
			req.Query.Add(k, v)
		}
	}

	attempt := func(ctx context.Context) (*Response, error) {
		var resp *Response
		var err error
		if cfg.breaker != nil {
			resp, err = c.executeWithBreaker(ctx, req, cfg)
		} else {
			resp, err = c.doRequest(ctx, req, cfg)
		}
		if err != nil {
			return resp, err
		}
		if !resp.IsSuccess() {
			return resp, newStatusError(resp)
		}
		return resp, nil
	}

	start := time.Now()
	attempts := 1
	var resp *Response
	var err error

	if cfg.retryEnabled {
		retryOpts := append([]retry.Option{
			retry.OnRetry(func(n int, err error) {
				cfg.logger.WarnCtx(ctx, "http request failed, retrying",
					zap.String("method", req.Method),
					zap.String("url", req.fullURL(cfg.baseURL)),
					zap.Int("attempt", n),
					zap.Error(err))
			}),
		}, cfg.retryOpts...)
		resp, err = retry.DoWithData(ctx, attempt, retryOpts...)
		if n := retry.GetAttempts(err); n > 0 {
			attempts = n
		}
	} else {
		resp, err = attempt(ctx)
	}

	if resp != nil {
		resp.Duration = time.Since(start)
		resp.Attempts = attempts
	}
	return resp, err
}

// doRequest executes a single attempt
func (c *Client) doRequest(ctx context.Context, req *Request, cfg *config) (*Response, error) {
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	httpReq, err := req.build(ctx, cfg.baseURL, cfg.headers)
	if err != nil {
		return nil, fmt.Errorf("build http request failed: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	// Body is read before cancel runs
	resp, err := newResponse(httpResp)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	return resp, nil
}

// DoWithData performs req and decodes a 2xx JSON body into T
func DoWithData[T any](ctx context.Context, client *Client, req *Request, opts ...Option) (*T, error) {
	resp, err := client.Do(ctx, req, opts...)
	if err != nil {
		return nil, err
	}

	var result T
	if err := resp.JSON(&result); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	return &result, nil
}
