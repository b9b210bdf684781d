// Package config loads the service configuration from a YAML file with
// environment variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the paper engine service.
type Config struct {
	Server  Server  `yaml:"server"`
	Store   Store   `yaml:"store"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Paper   Paper   `yaml:"paper"`
	Auth    Auth    `yaml:"auth"`
	Logging Logging `yaml:"logging"`
}

// Server holds network listener configuration.
type Server struct {
	Port string `yaml:"port"`
}

// Store holds persistence endpoints. Empty DatabaseURL selects the
// in-memory store; empty RedisURL disables the cache.
type Store struct {
	DatabaseURL     string `yaml:"database_url"`
	RedisURL        string `yaml:"redis_url"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// Alpaca holds credentials and endpoint for the brokerage proxy and the
// live quote oracle. All empty disables both.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Paper defines the simulated ledger parameters.
type Paper struct {
	StartingCash string            `yaml:"starting_cash"` // decimal string
	MockPrices   map[string]string `yaml:"mock_prices"`   // symbol -> decimal string
}

// Auth maps opaque API tokens to user IDs. AllowDevHeader accepts an
// X-User-ID header in place of a token (local development only).
type Auth struct {
	Tokens         map[string]string `yaml:"tokens"`
	AllowDevHeader bool              `yaml:"allow_dev_header"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: Server{Port: "8080"},
		Store:  Store{CacheTTLSeconds: 30},
		Paper:  Paper{StartingCash: "50000"},
	}
}

// Load reads the YAML configuration file at path (skipped when path is
// empty or missing), then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// StartingCash parses the configured starting deposit.
func (c *Config) StartingCash() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Paper.StartingCash)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid paper.starting_cash %q: %w", c.Paper.StartingCash, err)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("paper.starting_cash must be positive, got %s", d)
	}
	return d, nil
}

// MockPrices parses the configured static quote table. Nil when the
// config defines none (the caller falls back to the built-in table).
func (c *Config) MockPrices() (map[string]decimal.Decimal, error) {
	if len(c.Paper.MockPrices) == 0 {
		return nil, nil
	}
	prices := make(map[string]decimal.Decimal, len(c.Paper.MockPrices))
	for sym, raw := range c.Paper.MockPrices {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid paper.mock_prices[%s] %q: %w", sym, raw, err)
		}
		prices[sym] = d
	}
	return prices, nil
}

// applyEnvOverrides checks well-known environment variables and
// overrides the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Store.RedisURL = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("PAPER_STARTING_CASH"); v != "" {
		cfg.Paper.StartingCash = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
