// Package config loads the storefront client configuration from an
// optional YAML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full client configuration. Precedence: environment
// variables, then the YAML file, then defaults.
type Config struct {
	// BaseURL is the backend the client talks to.
	BaseURL string `yaml:"base_url" env:"STOREFRONT_BASE_URL"`
	// StoragePath is the directory backing durable storage (token, cart,
	// pending payment snapshot).
	StoragePath string `yaml:"storage_path" env:"STOREFRONT_STORAGE_PATH"`
	// TimeoutSeconds bounds each backend request.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"STOREFRONT_TIMEOUT_SECONDS"`
	// ReturnListenAddr is where the payment-return listener binds while a
	// gateway redirect is outstanding.
	ReturnListenAddr string `yaml:"return_listen_addr" env:"STOREFRONT_RETURN_LISTEN_ADDR"`

	LogLevel  string `yaml:"log_level" env:"STOREFRONT_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"STOREFRONT_LOG_FORMAT"`

	// RateLimit caps outgoing requests per second; RateBurst allows short
	// spikes above it.
	RateLimit float64 `yaml:"rate_limit" env:"STOREFRONT_RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" env:"STOREFRONT_RATE_BURST"`
}

// Default returns the built-in configuration.
func Default() *Config {
	storagePath := ".storefront"
	if home, err := os.UserHomeDir(); err == nil {
		storagePath = filepath.Join(home, ".storefront")
	}
	return &Config{
		BaseURL:          "http://localhost:5000",
		StoragePath:      storagePath,
		TimeoutSeconds:   30,
		ReturnListenAddr: "127.0.0.1:8741",
		LogLevel:         "info",
		LogFormat:        "text",
		RateLimit:        10,
		RateBurst:        20,
	}
}

// Load builds the configuration. A missing file at path is only an error
// when the path was explicitly supplied.
func Load(path string) (*Config, error) {
	// Pick up a local .env before reading the environment.
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = filepath.Join("config", "storefront.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults plus environment only.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.StoragePath == "" {
		return fmt.Errorf("storage_path is required")
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 10
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
