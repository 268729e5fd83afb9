package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewObserved returns a logger that records entries in memory, for unit tests
//
//	log, logs := logger.NewObserved("cache")
//	svc := cache.New(store, cache.WithLogger(log))
//	assert.Equal(t, 1, logs.FilterMessage("producer failed").Len())
func NewObserved(module string) (*CtxZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return Wrap(zap.New(core), module), logs
}
