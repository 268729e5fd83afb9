package httpx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KOMKZ/tickerdesk/errcode"
	"github.com/KOMKZ/tickerdesk/logger"
)

const errorPolicyKey = "httpx:error_policy"

// errorPolicy decides whether, and at which level, a failed request is logged
type errorPolicy struct {
	enabled bool
	ignore  map[int]bool
	chain   bool
	level   zapcore.Level
	byClass map[errcode.Class]zapcore.Level
}

func newErrorPolicy(cfg ErrorLoggingConfig) errorPolicy {
	p := errorPolicy{
		enabled: cfg.Enable,
		ignore:  make(map[int]bool, len(cfg.IgnoreHTTPStatus)),
		chain:   cfg.FullErrorChain,
		level:   zapcore.ErrorLevel,
		byClass: make(map[errcode.Class]zapcore.Level, len(cfg.ClassLevels)),
	}
	for _, status := range cfg.IgnoreHTTPStatus {
		p.ignore[status] = true
	}
	if cfg.LogLevel != "" {
		p.level = logger.ParseLevel(cfg.LogLevel)
	}
	for class, level := range cfg.ClassLevels {
		p.byClass[errcode.Class(class)] = logger.ParseLevel(level)
	}
	return p
}

// levelFor false when err is not logged
func (p errorPolicy) levelFor(err *errcode.LayeredError) (zapcore.Level, bool) {
	if !p.enabled || p.ignore[err.HTTPStatus()] {
		return 0, false
	}
	if l, ok := p.byClass[err.Class()]; ok {
		return l, true
	}
	return p.level, true
}

// ErrorLoggingMiddleware makes cfg visible to HandleError for the request
func ErrorLoggingMiddleware(cfg ErrorLoggingConfig) gin.HandlerFunc {
	p := newErrorPolicy(cfg)
	return func(c *gin.Context) {
		c.Set(errorPolicyKey, p)
		c.Next()
	}
}

// policyFrom logging stays off on routes outside the middleware
func policyFrom(c *gin.Context) errorPolicy {
	if val, exists := c.Get(errorPolicyKey); exists {
		if p, ok := val.(errorPolicy); ok {
			return p
		}
	}
	return errorPolicy{chain: true, level: zapcore.ErrorLevel}
}

func logAt(ctx context.Context, level zapcore.Level, msg string, fields ...zap.Field) {
	log := logger.GetLogger("httpx")
	switch {
	case level <= zapcore.DebugLevel:
		log.DebugCtx(ctx, msg, fields...)
	case level == zapcore.InfoLevel:
		log.InfoCtx(ctx, msg, fields...)
	case level == zapcore.WarnLevel:
		log.WarnCtx(ctx, msg, fields...)
	default:
		log.ErrorCtx(ctx, msg, fields...)
	}
}
