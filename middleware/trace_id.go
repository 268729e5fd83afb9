// Package middleware gin middleware for the tickerdesk HTTP front-end
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/KOMKZ/tickerdesk/logger"
)

const (
	// TraceIDKeyDefault gin.Context key
	TraceIDKeyDefault = "trace_id"

	// TraceIDHeaderDefault request/response header
	TraceIDHeaderDefault = "X-Trace-ID"
)

// TraceConfig trace middleware configuration
type TraceConfig struct {
	// TraceIDKey gin.Context key (default "trace_id")
	TraceIDKey string

	// TraceIDHeader header carrying the id (default "X-Trace-ID")
	TraceIDHeader string

	// EnableResponseHeader echo the id in the response (default true)
	EnableResponseHeader bool

	// Generator id generator (default UUID v4)
	Generator func() string
}

// DefaultTraceConfig default configuration
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		TraceIDKey:           TraceIDKeyDefault,
		TraceIDHeader:        TraceIDHeaderDefault,
		EnableResponseHeader: true,
		Generator:            func() string { return uuid.New().String() },
	}
}

// TraceID assigns every request a trace id
//
// An active OpenTelemetry span wins; otherwise the incoming header is reused
// or a new id generated. The id is stored in gin.Context and in the request
// context so that every *CtxZapLogger call made while serving it carries it.
//
//	engine.Use(middleware.TraceID(middleware.DefaultTraceConfig()))
func TraceID(cfg TraceConfig) gin.HandlerFunc {
	if cfg.TraceIDKey == "" {
		cfg.TraceIDKey = TraceIDKeyDefault
	}
	if cfg.TraceIDHeader == "" {
		cfg.TraceIDHeader = TraceIDHeaderDefault
	}
	if cfg.Generator == nil {
		cfg.Generator = func() string { return uuid.New().String() }
	}

	return func(c *gin.Context) {
		var traceID string
		span := trace.SpanFromContext(c.Request.Context())
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = c.GetHeader(cfg.TraceIDHeader)
			if traceID == "" {
				traceID = cfg.Generator()
			}
			c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))
		}

		c.Set(cfg.TraceIDKey, traceID)
		if cfg.EnableResponseHeader {
			c.Writer.Header().Set(cfg.TraceIDHeader, traceID)
		}

		c.Next()
	}
}

// GetTraceID trace id stored under the default key
func GetTraceID(c *gin.Context) string {
	return GetTraceIDWithKey(c, TraceIDKeyDefault)
}

// GetTraceIDWithKey trace id stored under key
func GetTraceIDWithKey(c *gin.Context, key string) string {
	return c.GetString(key)
}
