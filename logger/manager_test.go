package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFileOnlyManager(t *testing.T) (*Manager, string) {
	dir := t.TempDir()
	m := NewManager(ManagerConfig{
		BaseLogDir:            dir,
		Level:                 "info",
		Encoding:              "json",
		EnableFile:            true,
		EnableConsole:         false,
		EnableLevelInFilename: true,
		EnableDateInFilename:  false,
		MaxSize:               10,
		EnableTraceID:         true,
	})
	t.Cleanup(m.CloseAll)
	return m, dir
}

func TestManager_LevelSeparation(t *testing.T) {
	m, dir := newFileOnlyManager(t)

	log := m.GetLogger("cache")
	log.Info("artifact saved", zap.String("key", "idx_NIFTY50"))
	log.Error("artifact write failed", zap.String("key", "idx_NIFTY50"))
	log.Debug("below level")
	m.CloseAll()

	info, err := os.ReadFile(filepath.Join(dir, "cache", "cache-info.log"))
	require.NoError(t, err)
	errLog, err := os.ReadFile(filepath.Join(dir, "cache", "cache-error.log"))
	require.NoError(t, err)

	assert.Contains(t, string(info), "artifact saved")
	assert.NotContains(t, string(info), "artifact write failed")
	assert.NotContains(t, string(info), "below level")
	assert.Contains(t, string(errLog), "artifact write failed")
	assert.Contains(t, string(errLog), `"module":"cache"`)
}

func TestManager_SameLoggerPerModule(t *testing.T) {
	m, _ := newFileOnlyManager(t)

	var wg sync.WaitGroup
	loggers := make([]*CtxZapLogger, 20)
	for i := range loggers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loggers[i] = m.GetLogger("artifact")
		}(i)
	}
	wg.Wait()

	for _, l := range loggers {
		assert.Same(t, loggers[0], l)
	}
	assert.NotSame(t, loggers[0], m.GetLogger("server"))
}

func TestManager_TraceID(t *testing.T) {
	m, dir := newFileOnlyManager(t)

	ctx := WithTraceID(context.Background(), "trace-123")
	m.GetLogger("server").InfoCtx(ctx, "request handled")
	m.CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, "server", "server-info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trace_id":"trace-123"`)
}

func TestManager_ReloadConfig(t *testing.T) {
	m, _ := newFileOnlyManager(t)
	_ = m.GetLogger("cache")

	err := m.ReloadConfig(ManagerConfig{Level: "verbose"})
	assert.Error(t, err)

	cfg := m.Config()
	cfg.Level = "debug"
	require.NoError(t, m.ReloadConfig(cfg))
	assert.Equal(t, "debug", m.Config().Level)
}

func TestManagerConfig_Validate(t *testing.T) {
	cfg := DefaultManagerConfig()
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Encoding = "xml"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.MaxSize = 0
	assert.Error(t, bad.Validate())
}

func TestConfig_BuildFilePath(t *testing.T) {
	cfg := Config{moduleName: "cache", logDir: "logs", EnableLevelInFilename: true}
	assert.Equal(t, filepath.Join("logs", "cache", "cache-error.log"), cfg.buildFilePath("error"))

	cfg.EnableDateInFilename = true
	cfg.DateFormat = "2006-01-02"
	assert.True(t, strings.HasPrefix(filepath.Base(cfg.buildFilePath("info")), "cache-info-"))
}

func TestNewObserved(t *testing.T) {
	log, logs := NewObserved("artifact")
	log.WarnCtx(WithTraceID(context.Background(), "abc"), "corrupt artifact", zap.String("key", "k"))

	entries := logs.FilterMessage("corrupt artifact").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "artifact", fields["module"])
	assert.Equal(t, "abc", fields["trace_id"])
	assert.Equal(t, "k", fields["key"])
}

func TestGinLogWriter(t *testing.T) {
	n, err := NewGinLogWriter("gin").Write([]byte("  \n"))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}
