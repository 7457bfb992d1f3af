// Package logging configures the process-wide zerolog logger.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global zerolog logger. Development gets a human
// readable console writer, every other environment gets JSON lines.
func Init(serviceName, env string) {
	InitWithWriter(serviceName, env, os.Stdout)
}

// InitWithWriter is Init with an explicit output.
func InitWithWriter(serviceName, env string, out io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("service", serviceName).
			Logger()
		return
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Str("service", serviceName).
		Logger()
}

// WithRequestID returns a context carrying a logger tagged with the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	logger := log.With().Str("request_id", requestID).Logger()
	return logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if logger := zerolog.Ctx(ctx); logger.GetLevel() != zerolog.Disabled {
		return logger
	}
	return &log.Logger
}
