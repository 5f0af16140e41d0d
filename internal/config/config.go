// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"apparel-pricing/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Catalog locates the product-line catalog
	Catalog CatalogConfig `json:"catalog"`

	// Provider configures the remote pricing-bundle source
	Provider ProviderConfig `json:"provider"`

	// Server contains HTTP server settings
	Server ServerConfig `json:"server"`

	// Store contains quote persistence settings
	Store StoreConfig `json:"store"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// CatalogConfig contains catalog settings
type CatalogConfig struct {
	// Path is an .hcl or .hcl.json product-line catalog
	Path string `json:"path"`
}

// ProviderConfig contains remote pricing source settings
type ProviderConfig struct {
	// BaseURL is the pricing backend root; empty disables the remote source
	BaseURL string `json:"base_url"`

	// TimeoutSeconds bounds each backend request
	TimeoutSeconds int `json:"timeout_seconds"`

	// CacheTTLSeconds is how long fetched tier tables and profiles are served
	CacheTTLSeconds int `json:"cache_ttl_seconds"`

	// BreakerFailures is the consecutive-failure count that opens the breaker
	BreakerFailures uint32 `json:"breaker_failures"`

	// BreakerCooldownSeconds is how long the breaker stays open
	BreakerCooldownSeconds int `json:"breaker_cooldown_seconds"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr string `json:"addr"`
}

// StoreConfig contains quote persistence settings
type StoreConfig struct {
	// DatabasePath is the SQLite file; empty disables quote saving
	DatabasePath string `json:"database_path"`
}

// Timeout returns the backend request timeout
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CacheTTL returns the provider cache TTL
func (p ProviderConfig) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

// BreakerCooldown returns the open-state duration of the breaker
func (p ProviderConfig) BreakerCooldown() time.Duration {
	return time.Duration(p.BreakerCooldownSeconds) * time.Second
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Version: "1.0",
		Catalog: CatalogConfig{
			Path: "catalog.hcl",
		},
		Provider: ProviderConfig{
			TimeoutSeconds:         10,
			CacheTTLSeconds:        300, // 5 minutes
			BreakerFailures:        5,
			BreakerCooldownSeconds: 30,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(homeDir, ".apparel-pricing", "quotes.db"),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file, then applies .env and environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	// .env is a development convenience; real deployments inject the environment.
	_ = godotenv.Load()
	config.ApplyEnv()

	return config, nil
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PRICING_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("PRICING_API_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("PRICING_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Provider.CacheTTLSeconds = n
		}
	}
	if v := os.Getenv("PRICING_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("PRICING_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
