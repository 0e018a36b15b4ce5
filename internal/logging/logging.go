// Package logging builds the zerolog logger shared by the CLI and library.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level   string
	Format  string // json or console
	Output  io.Writer
	Service string
}

// New creates a logger from cfg. Output defaults to stderr so that stdout
// stays free for command output.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var zl zerolog.Logger
	if cfg.Format == "json" {
		zl = zerolog.New(out)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		})
	}

	service := cfg.Service
	if service == "" {
		service = "md2pdf"
	}
	return zl.Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
