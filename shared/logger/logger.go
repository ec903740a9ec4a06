// Package logger builds the zerolog loggers shared by every service.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimestampFieldName = "timestamp"
}

// New returns a JSON logger tagged with the service name.
func New(service string, level string) zerolog.Logger {
	return NewWithWriter(service, level, os.Stdout)
}

// NewWithWriter is New with an explicit sink, used by tests.
func NewWithWriter(service string, level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}

	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithCorrelationID returns a child logger carrying the saga correlation id.
func WithCorrelationID(l zerolog.Logger, correlationID string) zerolog.Logger {
	return l.With().Str("correlation_id", correlationID).Logger()
}

// ToContext stores the logger in ctx.
func ToContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or a disabled logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
