// Package main provides the NullTasker server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server     ServerConfig  `yaml:"server"`
	Storage    StorageConfig `yaml:"storage"`
	Auth       AuthConfig    `yaml:"auth"`
	Backup     BackupConfig  `yaml:"backup"`
	Metrics    MetricsConfig `yaml:"metrics"`
	Production bool          `yaml:"production"` // require JWT secret from env
	Verbose    bool          `yaml:"-"`          // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string    `yaml:"address"` // HTTP listen address (default: :8080)
	TLS     TLSConfig `yaml:"tls"`     // HTTPS configuration
}

// TLSConfig contains TLS settings for the server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`  // "sqlite" or "json"
	Path    string `yaml:"path"`     // SQLite database file
	DataDir string `yaml:"data_dir"` // JSON document directory
}

// AuthConfig contains token lifetime and rate limit settings.
// Durations use Go syntax ("1h", "168h").
type AuthConfig struct {
	AccessTokenTTL   string `yaml:"access_token_ttl"`
	RefreshTokenTTL  string `yaml:"refresh_token_ttl"`
	RememberMeTTL    string `yaml:"remember_me_ttl"`
	LoginRateLimit   int    `yaml:"login_rate_limit"`    // attempts per window per IP
	LoginRateWindow  string `yaml:"login_rate_window"`   // sliding window size
	RateLimitPerUser int    `yaml:"rate_limit_per_user"` // requests per minute
}

// BackupConfig contains backup settings.
type BackupConfig struct {
	Dir string `yaml:"dir"` // snapshot directory
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // metrics listen address (default: :9090)
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/nulltasker.db"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Auth.AccessTokenTTL == "" {
		c.Auth.AccessTokenTTL = "1h"
	}
	if c.Auth.RefreshTokenTTL == "" {
		c.Auth.RefreshTokenTTL = "168h" // 7 days
	}
	if c.Auth.RememberMeTTL == "" {
		c.Auth.RememberMeTTL = "720h" // 30 days
	}
	if c.Auth.LoginRateLimit == 0 {
		c.Auth.LoginRateLimit = 5
	}
	if c.Auth.LoginRateWindow == "" {
		c.Auth.LoginRateWindow = "15m"
	}
	if c.Auth.RateLimitPerUser == 0 {
		c.Auth.RateLimitPerUser = 100
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = "backups"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	switch c.Storage.Backend {
	case "sqlite", "json":
	default:
		return fmt.Errorf("storage.backend must be \"sqlite\" or \"json\", got %q", c.Storage.Backend)
	}
	for name, value := range map[string]string{
		"auth.access_token_ttl":  c.Auth.AccessTokenTTL,
		"auth.refresh_token_ttl": c.Auth.RefreshTokenTTL,
		"auth.remember_me_ttl":   c.Auth.RememberMeTTL,
		"auth.login_rate_window": c.Auth.LoginRateWindow,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", name, value)
		}
	}
	if c.Auth.LoginRateLimit < 1 {
		return fmt.Errorf("auth.login_rate_limit must be at least 1")
	}
	if c.Auth.RateLimitPerUser < 1 {
		return fmt.Errorf("auth.rate_limit_per_user must be at least 1")
	}
	return nil
}

// duration parses a validated duration string. Call Validate first.
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
