package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"voyageai/pkg/config"
)

// RequestLogger writes one line per HTTP request to the requests log.
var RequestLogger *slog.Logger

// Init installs the server logger as the slog default and builds RequestLogger.
// Existing log files are kept as <path>.old. The returned func closes the files.
func Init(cfg *config.LogConfig) (func(), error) {
	keepPrevious(cfg.Server.Path, cfg.Requests.Path, cfg.Prompts.Path)

	serverHandler, serverFile, err := newHandler(cfg.Server, true)
	if err != nil {
		return nil, fmt.Errorf("server log: %w", err)
	}
	requestHandler, requestFile, err := newHandler(cfg.Requests, false)
	if err != nil {
		serverFile.Close()
		return nil, fmt.Errorf("requests log: %w", err)
	}

	SetTrace(ParseLevel(cfg.Server.Level) == LevelTrace)
	slog.SetDefault(slog.New(serverHandler))
	RequestLogger = slog.New(requestHandler)

	closers := []io.Closer{serverFile, requestFile}
	return func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}, nil
}

// ParseLevel maps a config level name to a slog level. Unknown names give INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newHandler opens the log file of s. Console output adds stdout (INFO and up)
// and the in-memory capture used by /api/log/latest.
func newHandler(s config.LogSettings, console bool) (slog.Handler, *os.File, error) {
	if s.Path == "" {
		return nil, nil, errors.New("empty log path")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	level := ParseLevel(s.Level)
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: levelNames,
	})
	if !console {
		return fileHandler, file, nil
	}

	return fanout{
		fileHandler,
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: max(level, slog.LevelInfo)}),
		slog.NewTextHandler(GlobalLogCapture, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}, file, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Handler takes the record by value
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// keepPrevious renames each existing file to <path>.old, replacing an older copy.
func keepPrevious(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = os.Remove(p + ".old")
		_ = os.Rename(p, p+".old")
	}
}
