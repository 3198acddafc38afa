// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger writing to w at the given level. format "console" selects the
// human-readable writer; anything else emits JSON lines. Unknown levels fall back to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Setup builds the logger with New, installs it as the zerolog global and as the
// context default, and returns it.
func Setup(level, format, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := New(os.Stderr, level, format).With().Str("service", service).Logger()
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger
}
