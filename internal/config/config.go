// Package config loads client settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every variable this package reads.
const EnvPrefix = "SHOPVERSE"

const (
	EnvAPIURL         = "SHOPVERSE_API_URL"
	EnvAssetURL       = "SHOPVERSE_ASSET_URL"
	EnvRequestTimeout = "SHOPVERSE_REQUEST_TIMEOUT"
	EnvStorageBackend = "SHOPVERSE_STORAGE_BACKEND"
	EnvStorageDir     = "SHOPVERSE_STORAGE_DIR"
	EnvStorageSeal    = "SHOPVERSE_STORAGE_SEAL"
	EnvPassphrase     = "SHOPVERSE_STORAGE_PASSPHRASE"
	EnvNamespace      = "SHOPVERSE_STORAGE_NAMESPACE"
	EnvRedisURL       = "SHOPVERSE_REDIS_URL"
	EnvRedisPrefix    = "SHOPVERSE_REDIS_PREFIX"
	EnvPostgresDSN    = "SHOPVERSE_POSTGRES_DSN"
	EnvLogLevel       = "SHOPVERSE_LOG_LEVEL"
	EnvLogDev         = "SHOPVERSE_LOG_DEV"
	EnvMergeOnLogin   = "SHOPVERSE_CART_MERGE_ON_LOGIN"
	EnvLogoutOn401    = "SHOPVERSE_CART_LOGOUT_ON_UNAUTHORIZED"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	API     APIConfig
	Storage StorageConfig
	Log     LogConfig
	Cart    CartConfig
}

type APIConfig struct {
	URL      string        `envconfig:"SHOPVERSE_API_URL" default:"http://localhost:5000/api"`
	AssetURL string        `envconfig:"SHOPVERSE_ASSET_URL" default:"http://localhost:5000"`
	Timeout  time.Duration `envconfig:"SHOPVERSE_REQUEST_TIMEOUT" default:"30s"`
}

type StorageConfig struct {
	Backend     string `envconfig:"SHOPVERSE_STORAGE_BACKEND" default:"file"`
	Dir         string `envconfig:"SHOPVERSE_STORAGE_DIR"`
	Seal        bool   `envconfig:"SHOPVERSE_STORAGE_SEAL" default:"true"`
	Passphrase  string `envconfig:"SHOPVERSE_STORAGE_PASSPHRASE"`
	Namespace   string `envconfig:"SHOPVERSE_STORAGE_NAMESPACE" default:"default"`
	RedisURL    string `envconfig:"SHOPVERSE_REDIS_URL" default:"redis://localhost:6379/0"`
	RedisPrefix string `envconfig:"SHOPVERSE_REDIS_PREFIX" default:"shopverse"`
	PostgresDSN string `envconfig:"SHOPVERSE_POSTGRES_DSN"`
}

type LogConfig struct {
	Level string `envconfig:"SHOPVERSE_LOG_LEVEL" default:"warn"`
	Dev   bool   `envconfig:"SHOPVERSE_LOG_DEV" default:"false"`
}

type CartConfig struct {
	MergeOnLogin         bool `envconfig:"SHOPVERSE_CART_MERGE_ON_LOGIN" default:"true"`
	LogoutOnUnauthorized bool `envconfig:"SHOPVERSE_CART_LOGOUT_ON_UNAUTHORIZED" default:"true"`
}

// Load reads the environment, fills the storage dir default and validates.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = DefaultDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints. Call it again after applying flag overrides.
func (c *Config) Validate() error {
	if err := checkURL("api url", c.API.URL); err != nil {
		return err
	}
	if err := checkURL("asset url", c.API.AssetURL); err != nil {
		return err
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.API.Timeout)
	}
	switch strings.ToLower(c.Storage.Backend) {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("%s is required for the redis backend", EnvRedisURL)
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%s is required for the postgres backend", EnvPostgresDSN)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	return nil
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s: want an absolute http(s) url, got %q", name, raw)
	}
	return nil
}

// DefaultDir is $XDG_CONFIG_HOME/shopverse, else ~/.config/shopverse.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "shopverse")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "shopverse")
}
