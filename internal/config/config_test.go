package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// isolate points the config file lookup at a temp dir and clears overrides
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MPRISBAR_CONFIG", filepath.Join(dir, "config.toml"))
	for _, key := range []string{
		"MPRISBAR_WIDTH", "MPRISBAR_SCROLL_INTERVAL", "MPRISBAR_COVER_PATH",
		"MPRISBAR_SIGNAL", "MPRISBAR_SIGNAL_PROCESS", "MPRISBAR_DEBUG",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", dir)
	return dir
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNewAppConfig_Defaults(t *testing.T) {
	home := isolate(t)

	cfg := NewAppConfig(zap.NewNop(), zap.NewAtomicLevel())

	if cfg.GetMaxWidth() != 50 {
		t.Errorf("MaxWidth: expected 50, got %d", cfg.GetMaxWidth())
	}
	if cfg.GetScrollInterval() != 100*time.Millisecond {
		t.Errorf("ScrollInterval: expected 100ms, got %v", cfg.GetScrollInterval())
	}
	if want := filepath.Join(home, ".cache/mpris-cover.png"); cfg.GetCoverPath() != want {
		t.Errorf("CoverPath: expected %s, got %s", want, cfg.GetCoverPath())
	}
	if cfg.GetRefreshSignal() != 5 {
		t.Errorf("RefreshSignal: expected 5, got %d", cfg.GetRefreshSignal())
	}
	if cfg.GetSignalProcess() != "waybar" {
		t.Errorf("SignalProcess: expected waybar, got %s", cfg.GetSignalProcess())
	}
	if cfg.IsDebug() {
		t.Error("Debug should default to false")
	}
}

func TestNewAppConfig_File(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
width = 30
scroll_interval = "250ms"
cover_path = "/tmp/custom-cover.png"
signal = 8
signal_process = "yambar"
debug = true
`)

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg := NewAppConfig(zap.NewNop(), level)

	if cfg.GetMaxWidth() != 30 {
		t.Errorf("MaxWidth: expected 30, got %d", cfg.GetMaxWidth())
	}
	if cfg.GetScrollInterval() != 250*time.Millisecond {
		t.Errorf("ScrollInterval: expected 250ms, got %v", cfg.GetScrollInterval())
	}
	if cfg.GetCoverPath() != "/tmp/custom-cover.png" {
		t.Errorf("CoverPath: got %s", cfg.GetCoverPath())
	}
	if cfg.GetRefreshSignal() != 8 {
		t.Errorf("RefreshSignal: expected 8, got %d", cfg.GetRefreshSignal())
	}
	if cfg.GetSignalProcess() != "yambar" {
		t.Errorf("SignalProcess: expected yambar, got %s", cfg.GetSignalProcess())
	}
	if !cfg.IsDebug() || level.Level() != zapcore.DebugLevel {
		t.Error("Debug in file should lower the log level to debug")
	}
}

func TestNewAppConfig_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "width = 30\nsignal = 8\n")
	t.Setenv("MPRISBAR_WIDTH", "42")
	t.Setenv("MPRISBAR_SCROLL_INTERVAL", "1s")
	t.Setenv("MPRISBAR_COVER_PATH", "$HOME/art.png")

	cfg := NewAppConfig(zap.NewNop(), zap.NewAtomicLevel())

	if cfg.GetMaxWidth() != 42 {
		t.Errorf("MaxWidth: expected 42, got %d", cfg.GetMaxWidth())
	}
	if cfg.GetRefreshSignal() != 8 {
		t.Errorf("RefreshSignal: expected 8 from file, got %d", cfg.GetRefreshSignal())
	}
	if cfg.GetScrollInterval() != time.Second {
		t.Errorf("ScrollInterval: expected 1s, got %v", cfg.GetScrollInterval())
	}
	if want := filepath.Join(dir, "art.png"); cfg.GetCoverPath() != want {
		t.Errorf("CoverPath: expected %s, got %s", want, cfg.GetCoverPath())
	}
}

func TestNewAppConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(*testing.T, *AppConfig)
	}{
		{
			name: "Width too small",
			env:  map[string]string{"MPRISBAR_WIDTH": "2"},
			check: func(t *testing.T, c *AppConfig) {
				if c.GetMaxWidth() != 50 {
					t.Errorf("expected default width, got %d", c.GetMaxWidth())
				}
			},
		},
		{
			name: "Width not a number",
			env:  map[string]string{"MPRISBAR_WIDTH": "wide"},
			check: func(t *testing.T, c *AppConfig) {
				if c.GetMaxWidth() != 50 {
					t.Errorf("expected default width, got %d", c.GetMaxWidth())
				}
			},
		},
		{
			name: "Negative interval",
			env:  map[string]string{"MPRISBAR_SCROLL_INTERVAL": "-5ms"},
			check: func(t *testing.T, c *AppConfig) {
				if c.GetScrollInterval() != 100*time.Millisecond {
					t.Errorf("expected default interval, got %v", c.GetScrollInterval())
				}
			},
		},
		{
			name: "Signal out of range",
			env:  map[string]string{"MPRISBAR_SIGNAL": "99"},
			check: func(t *testing.T, c *AppConfig) {
				if c.GetRefreshSignal() != 5 {
					t.Errorf("expected default signal, got %d", c.GetRefreshSignal())
				}
			},
		},
		{
			name: "Debug not a bool",
			env:  map[string]string{"MPRISBAR_DEBUG": "maybe"},
			check: func(t *testing.T, c *AppConfig) {
				if c.IsDebug() {
					t.Error("expected debug to stay false")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			tt.check(t, NewAppConfig(zap.NewNop(), zap.NewAtomicLevel()))
		})
	}
}

func TestNewAppConfig_MalformedFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "width = = 3")

	cfg := NewAppConfig(zap.NewNop(), zap.NewAtomicLevel())
	if cfg.GetMaxWidth() != 50 {
		t.Errorf("expected defaults on malformed file, got width %d", cfg.GetMaxWidth())
	}
}
