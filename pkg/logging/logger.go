package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// ContextKeyRequestID carries the request id through contexts
	ContextKeyRequestID contextKey = "requestId"
	// ContextKeyCorrelationID carries the correlation id through contexts
	ContextKeyCorrelationID contextKey = "correlationId"
)

// Logger wraps slog.Logger with service-level conventions
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration
type Config struct {
	Service string
	Level   string
	Version string
}

// New creates a JSON logger writing to stdout
func New(cfg Config) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	logger := slog.New(handler).With(
		"service", cfg.Service,
	)
	if cfg.Version != "" {
		logger = logger.With("version", cfg.Version)
	}

	return &Logger{Logger: logger}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a logger scoped to a component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// WithError returns a logger with the error attached
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.Logger.With("error", err.Error())}
}

// WithContext returns a logger enriched with request/correlation ids
// found on the context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l.Logger

	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok && requestID != "" {
		logger = logger.With("requestId", requestID)
	}
	if correlationID, ok := ctx.Value(ContextKeyCorrelationID).(string); ok && correlationID != "" {
		logger = logger.With("correlationId", correlationID)
	}

	return &Logger{Logger: logger}
}

// ContextWithRequestID stores the request id on the context
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// ContextWithCorrelationID stores the correlation id on the context
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, correlationID)
}
