// Package logger configures the application-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Log is the shared logger instance. Init replaces it; the default
	// writes human-readable output to stderr so early log calls still work.
	Log = newConsole(os.Stderr, zerolog.InfoLevel)

	logFile *os.File
)

// Init configures the shared logger. level is parsed leniently and falls
// back to info. When filename is non-empty, log output is duplicated to
// that file in JSON form.
func Init(level string, filename string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if filename == "" {
		Log = newConsole(os.Stderr, lvl)
		return nil
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	logFile = f

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	Log = zerolog.New(zerolog.MultiLevelWriter(console, f)).
		Level(lvl).
		With().Timestamp().Logger()
	return nil
}

// Close releases the log file handle if one was opened by Init.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func newConsole(out io.Writer, lvl zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}
