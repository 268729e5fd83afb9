package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/KOMKZ/tickerdesk/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTraceID_GeneratesAndPropagates(t *testing.T) {
	var fromGin, fromCtx string
	r := gin.New()
	cfg := DefaultTraceConfig()
	cfg.Generator = func() string { return "fixed-id" }
	r.Use(TraceID(cfg))
	r.GET("/", func(c *gin.Context) {
		fromGin = GetTraceID(c)
		fromCtx = logger.TraceIDFromContext(c.Request.Context())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "fixed-id", fromGin)
	assert.Equal(t, "fixed-id", fromCtx)
	assert.Equal(t, "fixed-id", w.Header().Get(TraceIDHeaderDefault))
}

func TestTraceID_ReusesIncomingHeader(t *testing.T) {
	var got string
	r := gin.New()
	r.Use(TraceID(TraceConfig{}))
	r.GET("/", func(c *gin.Context) { got = GetTraceID(c) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeaderDefault, "upstream-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "upstream-1", got)
	// zero config does not echo the header
	assert.Empty(t, w.Header().Get(TraceIDHeaderDefault))
}

func TestTraceID_DefaultGeneratorIsUUID(t *testing.T) {
	var got string
	r := gin.New()
	r.Use(TraceID(DefaultTraceConfig()))
	r.GET("/", func(c *gin.Context) { got = GetTraceID(c) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, got, 36)
}
