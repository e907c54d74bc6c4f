// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port            int           `env:"PORT"             envDefault:"8080"`
	APIBaseURL      string        `env:"API_BASE_URL"`
	SnapshotPath    string        `env:"SNAPSHOT_PATH"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	CacheSize       int           `env:"CACHE_SIZE"       envDefault:"256"`
	CacheTTL        time.Duration `env:"CACHE_TTL"        envDefault:"10m"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT"    envDefault:"5s"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"0s"`
	SessionTTL      time.Duration `env:"SESSION_TTL"      envDefault:"30m"`
	BinSchemaPath   string        `env:"BIN_SCHEMA_PATH"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
}

var ErrNoSource = errors.New("one of API_BASE_URL or SNAPSHOT_PATH is required")

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the values a serving process depends on.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	if strings.TrimSpace(c.APIBaseURL) == "" && strings.TrimSpace(c.SnapshotPath) == "" {
		return ErrNoSource
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("REFRESH_INTERVAL must not be negative, got %s", c.RefreshInterval)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// UsesAPI reports whether collections come from the remote API. The API
// wins when a snapshot path is also set.
func (c Config) UsesAPI() bool {
	return strings.TrimSpace(c.APIBaseURL) != ""
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SlogLevel returns the configured log level, info when unrecognised.
func (c Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
