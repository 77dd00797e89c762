// Package logging builds the charmbracelet loggers used across screenstate.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to w at the given level name.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
		Prefix:          "screenstate",
	}), nil
}

// Open creates a logger for path, or stderr when path is empty.
// The returned closer must be called on shutdown.
func Open(path, level string) (*log.Logger, io.Closer, error) {
	if path == "" {
		logger, err := New(os.Stderr, level)
		return logger, io.NopCloser(nil), err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("logging: cannot create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: cannot open %s: %w", path, err)
	}

	logger, err := New(f, level)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, f, nil
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
