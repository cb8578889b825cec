// Package config loads pipeline configuration from TOML, following the
// teacher's config/config.go convention of using
// github.com/BurntSushi/toml and validating before returning. Unlike the
// teacher's deeply nested trie/static/live sections (which needed a
// map[string]any intermediate decode step to hand-walk), this schema is
// flat enough to decode directly into typed structs — see SPEC_FULL.md
// §2.3 for why that mechanical deviation from the teacher's exact decode
// style is still "the same library, used idiomatically."
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/brdata/pipeline/domain"
)

// NetworkConfig holds the three environment-overridable settings from
// spec.md §6 ("Environment variables (read once at startup)").
type NetworkConfig struct {
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
	RetryBackoff   float64 `toml:"retry_backoff"`
}

func (n NetworkConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// Config is the root pipeline configuration.
type Config struct {
	Network    NetworkConfig         `toml:"network"`
	Resource   domain.ResourceLimits `toml:"-"`
	OutputDir  string                `toml:"output_dir"`
	MaxWorkers int                   `toml:"max_workers"`
}

func defaultConfig() Config {
	return Config{
		Network: NetworkConfig{
			TimeoutSeconds: 900,
			MaxRetries:     5,
			RetryBackoff:   2.0,
		},
		Resource:   domain.DefaultResourceLimits(),
		OutputDir:  "./output",
		MaxWorkers: 8,
	}
}

// Load reads a TOML config file, falling back to defaults for any field
// not present, then applies environment-variable overrides (spec.md §6),
// matching the teacher's LoadConfig(path) -> (*Config, error) shape.
func Load(configPath string) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
				return nil, fmt.Errorf("decoding config %s: %w", configPath, err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides reads the three startup-time environment variables
// named in spec.md §6.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATAFINANCE_NETWORK_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Network.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("DATAFINANCE_NETWORK_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Network.MaxRetries = n
		}
	}
	if v := os.Getenv("DATAFINANCE_NETWORK_RETRY_BACKOFF"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Network.RetryBackoff = f
		}
	}
}

func (c Config) validate() error {
	if c.Network.TimeoutSeconds <= 0 {
		return &domain.ValidationError{Field: "network.timeout_seconds", Reason: "must be positive"}
	}
	if c.Network.MaxRetries < 0 {
		return &domain.ValidationError{Field: "network.max_retries", Reason: "must not be negative"}
	}
	if c.MaxWorkers < 1 {
		return &domain.ValidationError{Field: "max_workers", Reason: "must be at least 1"}
	}
	return nil
}
