package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "hotel-booking-backend"

// Options selects the logger level, format and destination.
type Options struct {
	Level  string
	Format string // json or console
	Env    string
	Output io.Writer
}

// New constructs a zerolog logger. Defaults to JSON, info level, stdout.
func New(opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level))); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	if strings.ToLower(strings.TrimSpace(opts.Format)) == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("env", opts.Env).
		Logger()
}
