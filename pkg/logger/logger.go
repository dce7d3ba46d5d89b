// Package logger provides the structured slog.Logger used uniformly across
// the process: internal/database, internal/events, internal/schema and
// internal/facade log via log.With(logger.Scope(...)) and logger.Error(err).
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/config"
)

// Module provides the process-wide *slog.Logger and *HTTPLogger to the fx
// graph.
var Module = fx.Module("logger",
	fx.Provide(New, NewHTTPLogger),
)

// Scope tags a log line with the package/component that emitted it.
func Scope(name string) slog.Attr {
	return slog.String("scope", name)
}

// Error attaches an error to a log line under a single, grep-able key.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// NewLogger builds a *slog.Logger straight from the process environment
// (LOG_LEVEL, GO_ENV), independent of internal/config — used by tests that
// want a logger without constructing a full Config.
func NewLogger() *slog.Logger {
	return build(parseLevel(os.Getenv("LOG_LEVEL")), strings.EqualFold(os.Getenv("GO_ENV"), "production"))
}

// New builds the logger from a loaded Config, as an fx provider. It is the
// same construction as NewLogger but reads level/environment from cfg so
// every other provider pulls config through a single path.
func New(cfg *config.Config) *slog.Logger {
	return build(parseLevel(cfg.LogLevel), !strings.EqualFold(cfg.Environment, "local") && !strings.EqualFold(cfg.Environment, "development"))
}

func build(level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// HTTPLogger writes one structured line per completed HTTP request; the
// facade's request-logging middleware calls LogRequest after the handler
// returns, mirroring the teacher's RequestLoggerWithConfig wiring.
type HTTPLogger struct {
	log *slog.Logger
}

// NewHTTPLogger builds an HTTPLogger on top of the process logger.
func NewHTTPLogger(log *slog.Logger) *HTTPLogger {
	return &HTTPLogger{log: log.With(Scope("http"))}
}

// LogRequest records method/path/status/duration for one completed request.
func (h *HTTPLogger) LogRequest(method, path string, status int, durationMS int64, err error) {
	attrs := []any{
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Int64("duration_ms", durationMS),
	}
	if err != nil {
		attrs = append(attrs, Error(err))
	}
	if status >= 500 {
		h.log.Error("request", attrs...)
		return
	}
	h.log.Info("request", attrs...)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
