// Package server provides configuration helpers that define runtime
// defaults, validation, and rate-limiting parameters for the ChatWire
// service.
package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mwestri/chatwire/internal/chat"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `env:"RATE_LIMIT_BURST"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string   `env:"SERVER_PORT"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	MaxMessageSize int64    `env:"MAX_MESSAGE_SIZE"`
	HistoryLimit   int      `env:"HISTORY_LIMIT"`
	UploadDir      string   `env:"UPLOAD_DIR"`
	MaxUploadSize  int64    `env:"MAX_UPLOAD_SIZE"`
	RateLimit      RateLimitConfig
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 4096,
		HistoryLimit:   chat.DefaultHistoryLimit,
		UploadDir:      "uploads",
		MaxUploadSize:  10 << 20,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
	}
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Unset variables fall back to the defaults from NewConfig.
func NewConfigFromEnv() (*Config, error) {
	cfg := NewConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.sanitize()
	return cfg, nil
}

// sanitize replaces unusable values with defaults rather than failing, so
// a misconfigured deployment still comes up in a working state.
func (c *Config) sanitize() {
	defaults := NewConfig()

	if c.Port == "" {
		c.Port = defaults.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaults.HistoryLimit
	}
	if c.UploadDir == "" {
		c.UploadDir = defaults.UploadDir
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = defaults.MaxUploadSize
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaults.RateLimit.Burst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = defaults.RateLimit.RefillInterval
	}
}
