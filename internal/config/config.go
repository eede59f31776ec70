// Package config loads the tuner configuration from a YAML file, filling in
// service defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
)

// Config is the full application configuration.
type Config struct {
	Service Service `yaml:"service"`
	Storage Storage `yaml:"storage"`
	Limits  Limits  `yaml:"limits"`
	QAMode  bool    `yaml:"qa_mode"`
}

// Service holds the remote endpoint settings.
type Service struct {
	Host      string `yaml:"host"`
	AppPath   string `yaml:"app_path"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Storage holds the local database settings.
type Storage struct {
	Path string `yaml:"path"`
}

// Limits overrides the session limits. Zero values fall back to the service
// defaults.
type Limits struct {
	RetryBudget       int `yaml:"retry_budget"`
	SkipLimit         int `yaml:"skip_limit"`
	FailedTrackLimit  int `yaml:"failed_track_limit"`
	SkipWindowMs      int `yaml:"skip_window_ms"`
	ActivityTimeoutMs int `yaml:"activity_timeout_ms"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Service: Service{
			Host:      "https://tuner.example.com",
			AppPath:   "/apps/radio2/",
			TimeoutMs: 30000,
		},
		Storage: Storage{Path: "tuner.db"},
	}
}

// Load reads and parses the file at path. A missing path returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Service.Host == "" {
		return cfg, fmt.Errorf("config: service host must not be empty")
	}
	return cfg, nil
}

// Timeout returns the request timeout as a duration.
func (s Service) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Apply writes the configured limit overrides onto the session.
func (l Limits) Apply(s *domain.Session) {
	if l.RetryBudget > 0 {
		s.RetryBudget = l.RetryBudget
		s.RetryBudgetMax = l.RetryBudget
	}
	if l.SkipLimit > 0 {
		s.SkipLimit = l.SkipLimit
	}
	if l.FailedTrackLimit > 0 {
		s.FailedTrackLimit = l.FailedTrackLimit
	}
	if l.SkipWindowMs > 0 {
		s.SkipWindow = time.Duration(l.SkipWindowMs) * time.Millisecond
	}
	if l.ActivityTimeoutMs > 0 {
		s.ActivityTimeout = time.Duration(l.ActivityTimeoutMs) * time.Millisecond
	}
}
