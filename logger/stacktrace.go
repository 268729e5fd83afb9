package logger

import (
	"fmt"
	"runtime"
	"strings"
)

// CaptureStacktrace captures the current call stack
// skip: frames to skip, depth: maximum frames (0 = 32)
func CaptureStacktrace(skip int, depth int) string {
	if depth <= 0 {
		depth = 32
	}

	pcs := make([]uintptr, depth*2)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return ""
	}

	var frames []string
	callersFrames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := callersFrames.Next()
		frames = append(frames, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		if len(frames) >= depth || !more {
			break
		}
	}
	return strings.Join(frames, "\n")
}

var levelOrder = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
	"fatal": 4,
}

// shouldCaptureStacktrace reports whether level reaches the configured stack threshold
func shouldCaptureStacktrace(level string, config ManagerConfig) bool {
	if !config.EnableStacktrace {
		return false
	}
	return levelOrder[level] >= levelOrder[config.StacktraceLevel]
}
