package logger

import (
	"strings"
)

// GinLogWriter adapts gin's text output (io.Writer) to a module logger
type GinLogWriter struct {
	module string
}

// NewGinLogWriter creates a gin log adapter bound to module
func NewGinLogWriter(module string) *GinLogWriter {
	return &GinLogWriter{module: module}
}

// Write implements io.Writer
func (w *GinLogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	switch {
	case strings.Contains(msg, "[GIN-debug]"):
		Debug(w.module, msg)
	case strings.Contains(msg, "[Recovery]"), strings.Contains(msg, "panic recovered"):
		Error(w.module, msg)
	default:
		Info(w.module, msg)
	}
	return len(p), nil
}
