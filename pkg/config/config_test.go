package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
server:
  host: 0.0.0.0
  port: 9000
presence:
  type: redis
  redis:
    addr: "localhost:6379"
    keyPrefix: "tickstream:presence:"
events:
  kafka:
    brokers: "localhost:9092"
    topic: presence-events
broadcast:
  interval_seconds: 2
sweep:
  interval_seconds: 30
  threshold_minutes: 10
log_level: debug
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(content), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Presence.Type != "redis" {
		t.Fatalf("expected redis store type, got %s", cfg.Presence.Type)
	}
	if cfg.Presence.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis addr: %s", cfg.Presence.Redis.Addr)
	}
	if !cfg.Events.Enabled() {
		t.Fatal("expected events feed to be enabled")
	}
	if cfg.Broadcast.Interval() != 2*time.Second {
		t.Fatalf("expected 2s broadcast interval, got %v", cfg.Broadcast.Interval())
	}
	if cfg.Sweep.Interval() != 30*time.Second {
		t.Fatalf("expected 30s sweep interval, got %v", cfg.Sweep.Interval())
	}
	if cfg.Sweep.Threshold() != 10*time.Minute {
		t.Fatalf("expected 10m threshold, got %v", cfg.Sweep.Threshold())
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(`{}`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8765 {
		t.Fatalf("expected default port 8765, got %d", cfg.Server.Port)
	}
	if cfg.Events.Enabled() {
		t.Fatal("events feed must default to disabled")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
