package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"feedwatch/internal/pkg/config"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configures NewLogger.
type Options struct {
	Level  slog.Level
	Format string    // FormatJSON or FormatText
	Output io.Writer // defaults to os.Stderr

	// Warnings collects problems found while reading the environment. NewLogger
	// logs them once the logger exists.
	Warnings []string
}

// FromEnv reads LOG_LEVEL and LOG_FORMAT. Unknown values fall back to info and
// json respectively.
func FromEnv() Options {
	opts := Options{Level: slog.LevelInfo, Format: FormatJSON}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := config.ParseLogLevel(raw)
		if err != nil {
			opts.Warnings = append(opts.Warnings, "Invalid LOG_LEVEL='"+raw+"', falling back to default 'info'")
		} else {
			opts.Level = level
		}
	}

	switch format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))); format {
	case "", FormatJSON:
	case FormatText:
		opts.Format = FormatText
	default:
		opts.Warnings = append(opts.Warnings, "Invalid LOG_FORMAT='"+format+"', falling back to default 'json'")
	}

	return opts
}

// NewLogger creates a logger from opts. Source locations are added at debug level.
func NewLogger(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if opts.Format == FormatText {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	for _, warning := range opts.Warnings {
		logger.Warn("Logging configuration fallback applied", slog.String("warning", warning))
	}
	return logger
}

type contextKey string

const loggerContextKey contextKey = "logger"

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext returns the logger stored by WithLogger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}
