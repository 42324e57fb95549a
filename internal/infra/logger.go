package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger aliases zerolog.Logger so packages depend on the logging contract
// through infra rather than importing the module directly.
type Logger = zerolog.Logger

// NewLogger builds the process logger. Development gets a console writer at
// debug level; every other environment logs JSON at info level to stderr so
// CLI output on stdout stays machine readable.
func NewLogger(appEnv string) Logger {
	return newLogger(os.Stderr, appEnv)
}

func newLogger(out io.Writer, appEnv string) Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}

	return logger
}

// NopLogger discards everything; used when callers inject no logger.
func NopLogger() *Logger {
	l := zerolog.New(io.Discard)
	return &l
}
