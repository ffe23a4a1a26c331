package logger

import (
	"io"
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings, lumberjack semantics.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes where application logs go. With File empty, logs are
// written to Fallback (stderr when nil); a TUI session passes io.Discard
// so the terminal stays clean.
type Config struct {
	Level      slog.Level
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Fallback   io.Writer
}

// Writer returns the destination for c. The returned closer is a no-op for
// non-file destinations.
func (c Config) Writer() io.WriteCloser {
	if c.File != "" {
		return &lj.Logger{
			Filename:   c.File,
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}
	}
	w := c.Fallback
	if w == nil {
		w = os.Stderr
	}
	return nopCloser{w}
}

// New builds a text slog.Logger for c and returns the closer for its writer.
func New(c Config) (*slog.Logger, io.Closer) {
	w := c.Writer()
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level})
	return slog.New(h), w
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
