// Package logging builds the zerolog loggers used by the CLI and the
// interactive UI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type Mode string

const (
	// ModeCLI writes human-readable lines to stderr so stdout stays clean
	// for --json output.
	ModeCLI Mode = "cli"
	// ModeTUI never touches the terminal; the alt screen owns it. Logs go to
	// File when set and are discarded otherwise.
	ModeTUI Mode = "tui"
)

type Options struct {
	Mode Mode
	// Writer receives CLI console output. Defaults to os.Stderr.
	Writer io.Writer
	Level  string
	File   string
}

// New returns the logger and a closer for any file it opened.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)
	switch {
	case strings.TrimSpace(opts.File) != "":
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file %s: %w", opts.File, err)
		}
		out = f
		closer = f
	case opts.Mode == ModeTUI:
		return zerolog.Nop(), closer, nil
	default:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		out = zerolog.ConsoleWriter{
			Out:        zerolog.SyncWriter(w),
			TimeFormat: "15:04:05",
		}
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("mode", string(opts.Mode)).
		Logger()
	return logger, closer, nil
}

// NewWriter returns a JSON logger on w, without console formatting.
func NewWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.SyncWriter(w)).Level(lvl).With().Timestamp().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
