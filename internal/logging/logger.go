// Package logging builds the console logger of the CLI.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// TimeFormat is the timestamp layout of console log lines.
const TimeFormat = "15:04:05"

// New creates a console logger writing to w. Verbose enables debug events.
func New(w io.Writer, verbose bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: TimeFormat,
		NoColor:    true,
	}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
