// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings of the service.
type Config struct {
	ListenAddr string         `yaml:"listen_addr"`
	LogLevel   string         `yaml:"log_level"`
	HTTP       HTTPConfig     `yaml:"http"`
	Database   DatabaseConfig `yaml:"database"`
	Telegram   TelegramConfig `yaml:"telegram"`
	Dispatcher DispatchConfig `yaml:"dispatcher"`
}

// HTTPConfig tunes the middleware in front of the API.
type HTTPConfig struct {
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	RateLimitPerSecond int      `yaml:"rate_limit_per_second"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
}

// DatabaseConfig configures the Postgres connection. An empty DSN selects
// the in-memory store, which is intended for local development only.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// TelegramConfig configures the outbound notification channel. An empty
// token disables delivery; outbox rows still accumulate.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// DispatchConfig tunes the outbox dispatcher.
type DispatchConfig struct {
	Interval string `yaml:"interval"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		HTTP: HTTPConfig{
			CORSAllowedOrigins: []string{"*"},
			RateLimitPerSecond: 50,
			RateLimitBurst:     100,
		},
		Dispatcher: DispatchConfig{Interval: "5s"},
	}
}

// Load reads the configuration file at path, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("DISPATCH_INTERVAL"); v != "" {
		cfg.Dispatcher.Interval = v
	}

	if _, err := cfg.DispatchInterval(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DispatchInterval parses the dispatcher polling interval.
func (c Config) DispatchInterval() (time.Duration, error) {
	if c.Dispatcher.Interval == "" {
		return 5 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Dispatcher.Interval)
	if err != nil {
		return 0, fmt.Errorf("dispatcher interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("dispatcher interval must be positive")
	}
	return d, nil
}
