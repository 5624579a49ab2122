package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex
)

// Logger returns the process-wide logger, lazily initialised using environment
// variables for format, level and an optional log file:
//   - AUTOPILOT_LOG_FORMAT: "json" (default) or "text"
//   - AUTOPILOT_LOG_LEVEL: debug|info|warn|error
//   - AUTOPILOT_LOG_FILE: path of an additional JSON log sink
func Logger() *slog.Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = newLoggerFromEnv()
	}
	return defaultLogger
}

// SetLogger overrides the global logger; mainly useful for tests.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// WithComponent attaches a component field to the shared logger.
func WithComponent(component string) *slog.Logger {
	return Logger().With("component", component)
}

// Options describes an explicitly configured logger.
type Options struct {
	Level  string
	Format string
	File   string
	Output io.Writer
}

// New builds a logger from explicit options. When a file is configured the
// records are fanned out to both the primary output and the file.
func New(opts Options) (*slog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var primary slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text":
		primary = slog.NewTextHandler(out, handlerOpts)
	default:
		primary = slog.NewJSONHandler(out, handlerOpts)
	}

	if opts.File == "" {
		return slog.New(primary).With("service", "ai-autopilot"), nil
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	handler := slogmulti.Fanout(primary, slog.NewJSONHandler(f, handlerOpts))
	return slog.New(handler).With("service", "ai-autopilot"), nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLoggerFromEnv() *slog.Logger {
	l, err := New(Options{
		Level:  os.Getenv("AUTOPILOT_LOG_LEVEL"),
		Format: os.Getenv("AUTOPILOT_LOG_FORMAT"),
		File:   os.Getenv("AUTOPILOT_LOG_FILE"),
	})
	if err != nil {
		l, _ = New(Options{
			Level:  os.Getenv("AUTOPILOT_LOG_LEVEL"),
			Format: os.Getenv("AUTOPILOT_LOG_FORMAT"),
		})
		l.Warn("log file unavailable, logging to stdout only", "error", err)
	}
	return l
}
