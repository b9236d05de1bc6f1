package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LevelTrace sits below DEBUG for very chatty output such as raw model responses.
const LevelTrace = slog.LevelDebug - 4

var traceEnabled atomic.Bool

// SetTrace switches trace output on or off. Init turns it on for level TRACE.
func SetTrace(on bool) { traceEnabled.Store(on) }

// TraceEnabled reports whether Trace emits anything.
func TraceEnabled() bool { return traceEnabled.Load() }

// Trace logs msg at LevelTrace. A nil logger uses the default one.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if !traceEnabled.Load() {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// levelNames renders LevelTrace as "TRACE" instead of "DEBUG-4".
func levelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}
