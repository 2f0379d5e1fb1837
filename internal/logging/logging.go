// Package logging builds the application's hclog loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	hclog "github.com/hashicorp/go-hclog"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "info"

// New returns a logger writing to w at the named level.
func New(w io.Writer, level string) (hclog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "studyfocus",
		Output: w,
		Level:  lvl,
	}), nil
}

// ParseLevel accepts trace, debug, info, warn or error. Empty means info.
func ParseLevel(level string) (hclog.Level, error) {
	if level == "" {
		level = DefaultLevel
	}
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		return hclog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// Open returns a logger appending to the file at path so that full-screen
// output stays clean. The returned closer closes the file.
func Open(path, level string) (hclog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger, err := New(file, level)
	if err != nil {
		if cerr := file.Close(); cerr != nil {
			_ = cerr
		}
		return nil, nil, err
	}
	return logger, file, nil
}
