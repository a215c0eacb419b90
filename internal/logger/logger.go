// Package logger builds the process logger.
package logger

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliamunaev/users-api/internal/config"
)

// Service is the value of the "service" field on every line.
const Service = "users-api"

var setup sync.Once

// New returns a logger writing to out at the configured level. Pretty output
// uses zerolog's console writer.
func New(cfg config.Log, env string, out io.Writer) zerolog.Logger {
	setup.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	})

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", Service).
		Str("env", env).
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
