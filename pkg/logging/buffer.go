package logging

import (
	"strings"
	"sync"
)

const captureCapacity = 50

// LogCaptureWriter keeps the most recent log lines in a ring for the status endpoint.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

// GlobalLogCapture receives INFO and above from the server logger.
var GlobalLogCapture = &LogCaptureWriter{}

// Write implements io.Writer. Each call is one slog record.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lines == nil {
		w.lines = make([]string, captureCapacity)
	}
	w.lines[w.next] = line
	w.next = (w.next + 1) % captureCapacity
	if w.next == 0 {
		w.full = true
	}
	return len(p), nil
}

// GetLastLine returns the most recent log line.
func (w *LogCaptureWriter) GetLastLine() string {
	last := w.Lines(1)
	if len(last) == 0 {
		return ""
	}
	return last[0]
}

// Lines returns up to n recent lines, oldest first.
func (w *LogCaptureWriter) Lines(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	size := w.next
	if w.full {
		size = captureCapacity
	}
	n = min(n, size)
	out := make([]string, 0, max(n, 0))
	for i := size - n; i < size; i++ {
		idx := i
		if w.full {
			idx = (w.next + i) % captureCapacity
		}
		out = append(out, w.lines[idx])
	}
	return out
}
