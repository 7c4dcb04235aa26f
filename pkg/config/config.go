// Package config loads the tickstream server configuration from a YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tickstream/tickstream/internal/events"
	"github.com/tickstream/tickstream/pkg/presence"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Presence  presence.Config `yaml:"presence"`
	Events    EventsConfig    `yaml:"events"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Sweep     SweepConfig     `yaml:"sweep"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type EventsConfig struct {
	Kafka events.KafkaConfig `yaml:"kafka"`
}

// Enabled reports whether a presence feed is configured.
func (e EventsConfig) Enabled() bool {
	return e.Kafka.Brokers != "" && e.Kafka.Topic != ""
}

type BroadcastConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

func (b BroadcastConfig) Interval() time.Duration {
	return time.Duration(b.IntervalSeconds) * time.Second
}

type SweepConfig struct {
	IntervalSeconds  int `yaml:"interval_seconds"`
	ThresholdMinutes int `yaml:"threshold_minutes"`
}

func (s SweepConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s SweepConfig) Threshold() time.Duration {
	return time.Duration(s.ThresholdMinutes) * time.Minute
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}
	return &cfg, nil
}

// ParseLogLevel maps a config string to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
