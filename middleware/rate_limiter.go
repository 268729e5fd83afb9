package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KOMKZ/tickerdesk/httpx"
	"github.com/KOMKZ/tickerdesk/limiter"
)

// RateLimiterConfig rate limiting configuration
type RateLimiterConfig struct {
	// Limiter required
	Limiter *limiter.Limiter

	// KeyFunc resource key (default client IP)
	KeyFunc func(*gin.Context) string

	// SkipFunc requests that are never limited (optional)
	SkipFunc func(*gin.Context) bool

	// SkipPaths paths that are never limited
	SkipPaths []string
}

// RateLimiter token bucket per client IP
//
// A limiter store failure lets the request through.
// Rejected requests get 429 with Retry-After and the httpx envelope.
func RateLimiter(cfg RateLimiterConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		panic("RateLimiterConfig.Limiter cannot be nil")
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = RateLimiterKeyByIP
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] || (cfg.SkipFunc != nil && cfg.SkipFunc(c)) {
			c.Next()
			return
		}

		resp, err := cfg.Limiter.Allow(c.Request.Context(), cfg.KeyFunc(c))
		if err != nil || resp.Allowed {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(resp.RetryAfter.Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, httpx.Response{
			Code: http.StatusTooManyRequests,
			Msg:  "too many requests, retry later",
		})
	}
}

// ForceRefreshLimiter limits only requests that bypass the cache (?force=true)
func ForceRefreshLimiter(l *limiter.Limiter) gin.HandlerFunc {
	return RateLimiter(RateLimiterConfig{
		Limiter: l,
		KeyFunc: func(c *gin.Context) string { return "force:" + c.ClientIP() },
		SkipFunc: func(c *gin.Context) bool {
			force, _ := strconv.ParseBool(strings.TrimSpace(c.Query("force")))
			return !force
		},
	})
}

// RateLimiterKeyByIP client IP
func RateLimiterKeyByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}
