// Package logging builds the zerolog loggers handed to each component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config string onto a zerolog level. Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// New returns a JSON logger writing to w at the given level.
func New(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Console returns a human-readable logger on stderr.
func Console(level string) zerolog.Logger {
	return New(level, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// File returns a JSON logger appending to path, creating parent directories.
// The returned closer releases the file.
func File(level, path string) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return New(level, f), f, nil
}

// Component tags a logger with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
