// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Timer    TimerConfig    `toml:"timer"`
	Focus    FocusConfig    `toml:"focus"`
	Stats    StatsConfig    `toml:"stats"`
	Reminder ReminderConfig `toml:"reminder"`
	Log      LogConfig      `toml:"log"`
}

// TimerConfig maps session timer settings.
type TimerConfig struct {
	Duration    *int     `toml:"duration"`
	Environment []string `toml:"environment"`
}

// FocusConfig switches individual focus signals on or off.
type FocusConfig struct {
	Visibility  *bool `toml:"visibility"`
	Interaction *bool `toml:"interaction"`
}

// StatsConfig maps stats settings.
type StatsConfig struct {
	Days *int `toml:"days"`
}

// ReminderConfig maps reminder settings.
type ReminderConfig struct {
	Schedule *string `toml:"schedule"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// Template is written by the config command when no file exists.
const Template = `# studyfocus configuration

[timer]
# Default session length in seconds.
# duration = 1500
# Environment tags recorded with each session, e.g. ["noisy"].
# environment = []

[focus]
# Use terminal focus reporting as the visibility signal.
# visibility = true
# Use key and mouse activity as the interaction signal.
# interaction = true

[stats]
# days = 30

[reminder]
# Cron schedule with seconds, e.g. "0 0 9 * * *". Empty uses your best study time.
# schedule = ""

[log]
# trace, debug, info, warn or error.
# level = "info"
`

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// EnsureConfig writes Template to path unless a file already exists.
func EnsureConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
