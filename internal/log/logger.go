// Package log builds the process logger: a slog handler writing text or JSON
// to stderr or a rotated file, wrapped so layout payloads never reach the
// output verbatim.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type Options struct {
	Level     string
	Format    string
	File      string
	MaxSizeMB int
	MaxFiles  int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger and the closer for its output. When File is empty the
// logger writes to fallback, which the caller keeps ownership of.
func New(opts Options, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	out := fallback
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		writer, err := NewRotatingWriter(RotationConfig{
			File:      opts.File,
			MaxSizeMB: opts.MaxSizeMB,
			MaxFiles:  opts.MaxFiles,
		})
		if err != nil {
			return nil, nil, err
		}
		out = writer
		closer = writer
	}
	if out == nil {
		out = io.Discard
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		base = slog.NewTextHandler(out, handlerOpts)
	case "json":
		base = slog.NewJSONHandler(out, handlerOpts)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}
	return slog.New(NewElidingHandler(base)), closer, nil
}

func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level %q", raw)
	}
}
