package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL       string `yaml:"database_url"`
	HTTPListenAddr    string `yaml:"http_listen_addr"`
	MetricsListenAddr string `yaml:"metrics_listen_addr"`
	TemporalAddress   string `yaml:"temporal_address"`
	LogLevel          string `yaml:"log_level"`
	ServiceName       string `yaml:"service_name"`
	// TokenHashKey is the hex-encoded server-side key for the token secret
	// hash. Rotating it invalidates every issued token.
	TokenHashKey string `yaml:"token_hash_key"`
	// TokenPurgeGraceDays is how long expired tokens stay in the table
	// before the purge job removes them. Expired tokens are already
	// rejected at validation regardless.
	TokenPurgeGraceDays int `yaml:"token_purge_grace_days"`
}

// Load reads configuration from an optional YAML file (APIHUB_CONFIG) with
// environment variables taking precedence.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPListenAddr:      ":8090",
		MetricsListenAddr:   ":9090",
		TemporalAddress:     "localhost:7233",
		LogLevel:            "info",
		TokenPurgeGraceDays: 30,
	}

	if path := os.Getenv("APIHUB_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	overrideEnv(&cfg.DatabaseURL, "DATABASE_URL")
	overrideEnv(&cfg.HTTPListenAddr, "HTTP_LISTEN_ADDR")
	overrideEnv(&cfg.MetricsListenAddr, "METRICS_LISTEN_ADDR")
	overrideEnv(&cfg.TemporalAddress, "TEMPORAL_ADDRESS")
	overrideEnv(&cfg.LogLevel, "LOG_LEVEL")
	overrideEnv(&cfg.ServiceName, "SERVICE_NAME")
	overrideEnv(&cfg.TokenHashKey, "TOKEN_HASH_KEY")

	return cfg, nil
}

// Validate checks the fields the given component requires at startup.
func (c *Config) Validate(component string) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s: DATABASE_URL is required", component)
	}
	if _, err := c.HashKey(); err != nil {
		return fmt.Errorf("%s: %w", component, err)
	}
	if component == "worker" && c.TemporalAddress == "" {
		return fmt.Errorf("%s: TEMPORAL_ADDRESS is required", component)
	}
	return nil
}

// HashKey decodes the token hash key.
func (c *Config) HashKey() ([]byte, error) {
	if c.TokenHashKey == "" {
		return nil, fmt.Errorf("TOKEN_HASH_KEY is required")
	}
	key, err := hex.DecodeString(c.TokenHashKey)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_HASH_KEY must be hex: %w", err)
	}
	return key, nil
}

func overrideEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
