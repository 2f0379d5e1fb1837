package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected missing file to be ignored: %v", err)
	}
	if cfg.Timer.Duration != nil || cfg.Log.Level != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[timer]
duration = 1800
environment = ["noisy"]

[focus]
interaction = false

[stats]
days = 7

[reminder]
schedule = "0 30 8 * * *"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Timer.Duration == nil || *cfg.Timer.Duration != 1800 {
		t.Fatalf("unexpected duration: %v", cfg.Timer.Duration)
	}
	if len(cfg.Timer.Environment) != 1 || cfg.Timer.Environment[0] != "noisy" {
		t.Fatalf("unexpected environment: %v", cfg.Timer.Environment)
	}
	if cfg.Focus.Visibility != nil {
		t.Fatalf("visibility should be unset")
	}
	if cfg.Focus.Interaction == nil || *cfg.Focus.Interaction {
		t.Fatalf("expected interaction=false")
	}
	if cfg.Stats.Days == nil || *cfg.Stats.Days != 7 {
		t.Fatalf("unexpected days: %v", cfg.Stats.Days)
	}
	if cfg.Reminder.Schedule == nil || *cfg.Reminder.Schedule != "0 30 8 * * *" {
		t.Fatalf("unexpected schedule: %v", cfg.Reminder.Schedule)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected level: %v", cfg.Log.Level)
	}
}

func TestEnsureConfigWritesTemplateOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studyfocus", "config.toml")
	if err := EnsureConfig(path); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("template must decode: %v", err)
	}
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := EnsureConfig(path); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "warn" {
		t.Fatalf("existing config must not be overwritten")
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	if got := DefaultDBPath(); got != "/data/studyfocus/studyfocus.db" {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultLogPath(); got != "/state/studyfocus/studyfocus.log" {
		t.Fatalf("unexpected log path %q", got)
	}
	if got := DefaultConfigPath(); got != "/cfg/studyfocus/config.toml" {
		t.Fatalf("unexpected config path %q", got)
	}
}
