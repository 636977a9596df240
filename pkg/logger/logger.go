// Package logger configures zerolog output for uiexplorer.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger writing human-readable output to stderr and, when
// file is non-empty, JSON lines to that file as well.
func New(level, file string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	var w io.Writer = console
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //#nosec G304 -- user-provided log path
		if err != nil {
			return zerolog.Nop(), err
		}
		w = zerolog.MultiLevelWriter(console, f)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Nop returns a logger that discards everything. Used by tests and by
// components constructed without an explicit logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
