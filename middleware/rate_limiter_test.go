package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/KOMKZ/tickerdesk/limiter"
	"github.com/KOMKZ/tickerdesk/logger"
)

func TestForceRefreshLimiter(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := limiter.New(limiter.NewMemoryStore(clock), 0.1, 1, limiter.WithClock(clock), limiter.WithLogger(logger.Nop()))

	r := gin.New()
	r.Use(ForceRefreshLimiter(l))
	r.GET("/api/report/:mode/:type", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/report/index/live"+query, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, do("?force=true").Code)
	w := do("?force=1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10", w.Header().Get("Retry-After"))

	// cached reads are never limited
	assert.Equal(t, http.StatusOK, do("").Code)
	assert.Equal(t, http.StatusOK, do("?force=false").Code)

	clock.Advance(10e9)
	assert.Equal(t, http.StatusOK, do("?force=true").Code)
}

func TestRateLimiter_SkipPaths(t *testing.T) {
	l := limiter.New(limiter.NewMemoryStore(nil), 1, 1, limiter.WithLogger(logger.Nop()))
	r := gin.New()
	r.Use(RateLimiter(RateLimiterConfig{Limiter: l, SkipPaths: []string{"/health"}}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
