package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager manages one CtxZapLogger per module
type Manager struct {
	baseConfig ManagerConfig
	loggers    map[string]*CtxZapLogger
	zapLoggers map[string]*zap.Logger
	writers    map[string][]*lumberjack.Logger // kept for Close
	mu         sync.RWMutex
}

var (
	globalManager *Manager
	managerMu     sync.Mutex
)

// NewManager creates an independent Manager
// Zero-valued fields of cfg are filled with defaults
func NewManager(cfg ManagerConfig) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		baseConfig: cfg,
		loggers:    make(map[string]*CtxZapLogger),
		zapLoggers: make(map[string]*zap.Logger),
		writers:    make(map[string][]*lumberjack.Logger),
	}
}

// InitManager installs the global Manager, closing the previous one
func InitManager(cfg ManagerConfig) *Manager {
	managerMu.Lock()
	defer managerMu.Unlock()
	if globalManager != nil {
		globalManager.CloseAll()
	}
	globalManager = NewManager(cfg)
	return globalManager
}

func global() *Manager {
	managerMu.Lock()
	defer managerMu.Unlock()
	if globalManager == nil {
		globalManager = NewManager(DefaultManagerConfig())
	}
	return globalManager
}

// GetLogger returns the CtxZapLogger of a module (thread-safe, created on demand)
// The returned logger carries the module field
func (m *Manager) GetLogger(moduleName string) *CtxZapLogger {
	m.mu.RLock()
	if l, ok := m.loggers[moduleName]; ok {
		m.mu.RUnlock()
		return l
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.loggers[moduleName]; ok {
		return l
	}

	cfg := m.buildModuleConfig(moduleName)
	zapLogger := m.createLogger(cfg).With(zap.String("module", moduleName))

	l := &CtxZapLogger{
		base:   zapLogger.WithOptions(zap.AddCallerSkip(1)),
		module: moduleName,
		config: &m.baseConfig,
	}
	m.loggers[moduleName] = l
	m.zapLoggers[moduleName] = zapLogger
	return l
}

func (m *Manager) buildModuleConfig(moduleName string) Config {
	return Config{
		Level:                 m.baseConfig.Level,
		Encoding:              m.baseConfig.Encoding,
		moduleName:            moduleName,
		logDir:                m.baseConfig.BaseLogDir,
		EnableFile:            m.baseConfig.EnableFile,
		EnableConsole:         m.baseConfig.EnableConsole,
		EnableLevelInFilename: m.baseConfig.EnableLevelInFilename,
		EnableDateInFilename:  m.baseConfig.EnableDateInFilename,
		DateFormat:            m.baseConfig.DateFormat,
		MaxSize:               m.baseConfig.MaxSize,
		MaxBackups:            m.baseConfig.MaxBackups,
		MaxAge:                m.baseConfig.MaxAge,
		Compress:              m.baseConfig.Compress,
		EnableCaller:          m.baseConfig.EnableCaller,
		EnableStacktrace:      m.baseConfig.EnableStacktrace,
		StacktraceLevel:       m.baseConfig.StacktraceLevel,
	}
}

// createLogger builds the zap core tee: console, info file and error file
func (m *Manager) createLogger(cfg Config) *zap.Logger {
	var cores []zapcore.Core
	var writers []*lumberjack.Logger
	level := ParseLevel(cfg.Level)

	if cfg.EnableConsole {
		encoding := cfg.Encoding
		if m.baseConfig.ConsoleEncoding != "" {
			encoding = m.baseConfig.ConsoleEncoding
		}
		cores = append(cores, zapcore.NewCore(createEncoder(encoding), zapcore.AddSync(os.Stdout), level))
	}

	if cfg.EnableFile {
		encoder := createEncoder(cfg.Encoding)

		infoWriter, infoLumber := createFileWriter(cfg.buildFilePath("info"), cfg)
		writers = append(writers, infoLumber)
		cores = append(cores, zapcore.NewCore(encoder, infoWriter,
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= level && lvl < zapcore.ErrorLevel
			})))

		errorWriter, errorLumber := createFileWriter(cfg.buildFilePath("error"), cfg)
		writers = append(writers, errorLumber)
		cores = append(cores, zapcore.NewCore(encoder, errorWriter,
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel && lvl >= level
			})))
	}

	if len(writers) > 0 {
		m.writers[cfg.moduleName] = writers
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	// Stack traces are attached by CtxZapLogger.ErrorCtx with a bounded depth
	return zap.New(zapcore.NewTee(cores...), opts...)
}

// CloseAll flushes buffers and closes all file handles
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.zapLoggers {
		_ = l.Sync()
	}
	for _, writers := range m.writers {
		for _, w := range writers {
			_ = w.Close()
		}
	}
	m.loggers = make(map[string]*CtxZapLogger)
	m.zapLoggers = make(map[string]*zap.Logger)
	m.writers = make(map[string][]*lumberjack.Logger)
}

// ReloadConfig rebuilds every logger with a new configuration
func (m *Manager) ReloadConfig(newCfg ManagerConfig) error {
	newCfg.ApplyDefaults()
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("invalid logger config: %w", err)
	}
	m.CloseAll()

	m.mu.Lock()
	m.baseConfig = newCfg
	m.mu.Unlock()
	return nil
}

// Config returns a copy of the base configuration
func (m *Manager) Config() ManagerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseConfig
}

func createEncoder(encoding string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoding == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// createFileWriter creates a rotating writer (lumberjack)
func createFileWriter(filename string, cfg Config) (zapcore.WriteSyncer, *lumberjack.Logger) {
	_ = os.MkdirAll(filepath.Dir(filename), 0755)

	lumberLogger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	return zapcore.AddSync(lumberLogger), lumberLogger
}

// ============================================
// Package level helpers (global manager)
// ============================================

// GetLogger returns the module logger of the global manager
func GetLogger(moduleName string) *CtxZapLogger {
	return global().GetLogger(moduleName)
}

// CloseAll closes every logger of the global manager
func CloseAll() {
	managerMu.Lock()
	m := globalManager
	managerMu.Unlock()
	if m != nil {
		m.CloseAll()
	}
}

// Info logs at info level
// logger.Info("cache", "artifact saved", zap.String("key", "idx_NIFTY50"))
func Info(module string, msg string, fields ...zap.Field) {
	GetLogger(module).Info(msg, fields...)
}

// Debug logs at debug level
func Debug(module string, msg string, fields ...zap.Field) {
	GetLogger(module).Debug(msg, fields...)
}

// Warn logs at warn level
func Warn(module string, msg string, fields ...zap.Field) {
	GetLogger(module).Warn(msg, fields...)
}

// Error logs at error level
func Error(module string, msg string, fields ...zap.Field) {
	GetLogger(module).Error(msg, fields...)
}

// InfoCtx logs at info level with trace id extraction
func InfoCtx(ctx context.Context, module string, msg string, fields ...zap.Field) {
	GetLogger(module).InfoCtx(ctx, msg, fields...)
}

// WarnCtx logs at warn level with trace id extraction
func WarnCtx(ctx context.Context, module string, msg string, fields ...zap.Field) {
	GetLogger(module).WarnCtx(ctx, msg, fields...)
}

// ErrorCtx logs at error level with trace id extraction
func ErrorCtx(ctx context.Context, module string, msg string, fields ...zap.Field) {
	GetLogger(module).ErrorCtx(ctx, msg, fields...)
}
