package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KOMKZ/tickerdesk/logger"
)

// RequestLogConfig request log configuration
type RequestLogConfig struct {
	// Module logger module (default "server")
	Module string

	// Logger overrides Module when set
	Logger *logger.CtxZapLogger

	// SkipPaths paths that are never logged, e.g. /health
	SkipPaths []string
}

// DefaultRequestLogConfig default configuration
func DefaultRequestLogConfig() RequestLogConfig {
	return RequestLogConfig{
		Module:    "server",
		SkipPaths: []string{},
	}
}

// RequestLog structured access log replacing gin.Logger()
// 5xx at error, 4xx at warn, everything else at info.
func RequestLog() gin.HandlerFunc {
	return RequestLogWithConfig(DefaultRequestLogConfig())
}

// RequestLogWithConfig access log with custom configuration
func RequestLogWithConfig(cfg RequestLogConfig) gin.HandlerFunc {
	if cfg.Module == "" {
		cfg.Module = "server"
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = true
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger(cfg.Module)
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("body_size", c.Writer.Size()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("error", errs))
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.ErrorCtx(ctx, "http request", fields...)
		case status >= 400:
			log.WarnCtx(ctx, "http request", fields...)
		default:
			log.InfoCtx(ctx, "http request", fields...)
		}
	}
}
