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

	"venuemap/pkg/config"
)

// RequestLogger is the logger instance for HTTP requests.
var RequestLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Init installs the server logger (file, stdout and LastLog), the request logger
// and the analytics event log. Previous log files are kept as .old.
// It returns a cleanup function that closes every file.
func Init(cfg *config.LogConfig) (func(), error) {
	rotatePaths(cfg.Server.Path, cfg.Requests.Path, cfg.Events.Path)
	EnableTrace = cfg.Trace

	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	serverHandler, serverFile, err := newHandler(cfg.Server, true)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	closers = append(closers, serverFile)

	requestHandler, requestFile, err := newHandler(cfg.Requests, false)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}
	closers = append(closers, requestFile)

	if err := OpenEventLog(cfg.Events.Path, parseLevel(cfg.Events.Level)); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	closers = append(closers, closerFunc(CloseEventLog))

	slog.SetDefault(slog.New(serverHandler))
	RequestLogger = slog.New(requestHandler)
	return cleanup, nil
}

type closerFunc func()

func (f closerFunc) Close() error { f(); return nil }

// parseLevel accepts DEBUG, INFO, WARN and ERROR in any case. Anything else is INFO.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// newHandler opens the log file of s. The server logger also writes INFO+ to
// stdout and to LastLog.
func newHandler(s config.LogSettings, console bool) (slog.Handler, *os.File, error) {
	if s.Path == "" {
		return nil, nil, errors.New("log path is empty")
	}
	file, err := openAppend(s.Path)
	if err != nil {
		return nil, nil, err
	}

	level := parseLevel(s.Level)
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	if !console {
		return fileHandler, file, nil
	}

	return &multiHandler{handlers: []slog.Handler{
		fileHandler,
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: max(level, slog.LevelInfo)}),
		slog.NewTextHandler(LastLog, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}}, file, nil
}

// multiHandler fans a record out to every handler that accepts its level.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// nolint:gocritic // r must be passed by value to implement slog.Handler
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *multiHandler) each(fn func(slog.Handler) slog.Handler) *multiHandler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = fn(h)
	}
	return &multiHandler{handlers: out}
}

// rotatePaths moves each existing file to <path>.old, replacing an older .old.
func rotatePaths(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		old := p + ".old"
		_ = os.Remove(old)
		_ = os.Rename(p, old)
	}
}
