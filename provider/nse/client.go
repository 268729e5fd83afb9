// Package nse reads index, pre-open and end-of-day data from the NSE website APIs
package nse

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/KOMKZ/tickerdesk/httpclient"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/provider"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL website host serving the JSON APIs
	DefaultBaseURL = "https://www.nseindia.com"
	// DefaultArchiveURL host serving the daily bhavcopy files
	DefaultArchiveURL = "https://archives.nseindia.com"

	// sessionTTL how long the cookies from the landing page are trusted
	sessionTTL = 5 * time.Minute

	source = "nse"
)

// Config NSE client configuration
type Config struct {
	provider.Config `mapstructure:",squash"`
	ArchiveURL      string `mapstructure:"archive_url"`
}

// Client NSE API client
// The APIs only answer with the cookies handed out by the landing page,
// so the client primes a cookie session and refreshes it on 401/403
type Client struct {
	http       *httpclient.Client
	archive    *httpclient.Client
	archiveURL string
	clock      clockwork.Clock
	log        *logger.CtxZapLogger

	mu       sync.Mutex
	primedAt time.Time
}

// Option client option
type Option func(*Client)

// WithClock sets the clock used for session expiry
func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) {
		if c != nil {
			cl.clock = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client; zero fields take defaults
func New(cfg Config, opts ...Option) *Client {
	cfg.Config.ApplyDefaults(DefaultBaseURL)
	if cfg.ArchiveURL == "" {
		cfg.ArchiveURL = DefaultArchiveURL
	}

	c := &Client{
		archiveURL: strings.TrimRight(cfg.ArchiveURL, "/"),
		clock:      clockwork.NewRealClock(),
		log:        logger.GetLogger("provider"),
	}
	for _, opt := range opts {
		opt(c)
	}

	// cookiejar.New only fails on a bad PublicSuffixList
	jar, _ := cookiejar.New(nil)
	headers := map[string]string{
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         strings.TrimRight(cfg.BaseURL, "/") + "/",
	}
	base := cfg.ClientOptions(source, c.log)
	c.http = httpclient.NewClient(append(base, httpclient.WithCookieJar(jar), httpclient.WithHeaders(headers))...)

	archiveCfg := cfg.Config
	archiveCfg.BaseURL = c.archiveURL
	c.archive = httpclient.NewClient(archiveCfg.ClientOptions(source+"-archive", c.log)...)
	return c
}

// ensureSession loads the landing page when the cookie session is missing or old
// A failed priming is logged; the API call decides whether it mattered
func (c *Client) ensureSession(ctx context.Context, force bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if !force && !c.primedAt.IsZero() && now.Sub(c.primedAt) < sessionTTL {
		return
	}
	req := httpclient.NewGetRequest("/").WithHeader("Accept", "text/html,application/xhtml+xml")
	if _, err := c.http.Do(ctx, req, httpclient.DisableRetry()); err != nil {
		c.log.WarnCtx(ctx, "nse session priming failed", zap.Error(err))
		return
	}
	c.primedAt = now
}

// getJSON calls an API path and decodes into out, re-priming once on 401/403
func getJSON[T any](ctx context.Context, c *Client, req *httpclient.Request) (*T, error) {
	c.ensureSession(ctx, false)

	log := c.log.With(zap.String("source", source), zap.String("path", req.URL))
	out, err := httpclient.DoWithData[T](ctx, c.http, req)
	if isAuthError(err) {
		log.InfoCtx(ctx, "nse session rejected, refreshing")
		c.ensureSession(ctx, true)
		out, err = httpclient.DoWithData[T](ctx, c.http, req)
	}
	if err != nil {
		log.WarnCtx(ctx, "nse request failed", zap.Error(err))
		return nil, provider.Classify(source, err)
	}
	return out, nil
}

func isAuthError(err error) bool {
	var se *httpclient.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
}
