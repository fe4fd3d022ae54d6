package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix prefixes environment variables overriding configuration keys,
// e.g. FIELDINFO_CACHE_BACKEND
const EnvPrefix = "FIELDINFO"

// Config represents the fieldinfo configuration
type Config struct {
	Cache     CacheConfig    `mapstructure:"cache"`
	Redis     RedisConfig    `mapstructure:"redis"`
	KeyValue  KeyValueConfig `mapstructure:"keyvalue"`
	Catalog   CatalogConfig  `mapstructure:"catalog"`
	Language  LanguageConfig `mapstructure:"language"`
	Server    ServerConfig   `mapstructure:"server"`
	UseCaches bool           `mapstructure:"use_caches"`
}

// CacheConfig selects the persistent cache backend
type CacheConfig struct {
	// Backend is memory, redis or none
	Backend    string        `mapstructure:"backend"`
	Prefix     string        `mapstructure:"prefix"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// RedisConfig represents the Redis connection shared by the cache and the
// key-value store
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KeyValueConfig selects where bundle field maps, overrides and installed
// snapshots are stored
type KeyValueConfig struct {
	// Backend is memory, redis or sql
	Backend string `mapstructure:"backend"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// CatalogConfig locates the catalog of entity types
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LanguageConfig lists the languages definitions are built in
type LanguageConfig struct {
	Default   string   `mapstructure:"default"`
	Supported []string `mapstructure:"supported"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load loads the configuration from path, or from fieldinfo.yml or
// fieldinfo.yaml in the working directory when path is empty
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.prefix", "fieldinfo:")
	v.SetDefault("cache.default_ttl", 0)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("keyvalue.backend", "memory")
	v.SetDefault("keyvalue.driver", "sqlite3")
	v.SetDefault("keyvalue.dsn", "fieldinfo.db")
	v.SetDefault("catalog.path", "catalog.yml")
	v.SetDefault("language.default", "en")
	v.SetDefault("language.supported", []string{"en"})
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("use_caches", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fieldinfo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile walks up from the working directory looking for
// fieldinfo.yml or fieldinfo.yaml
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{"fieldinfo.yml", "fieldinfo.yaml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", fmt.Errorf("no fieldinfo.yml found")
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.backend must be memory, redis or none, got: %s", cfg.Cache.Backend)
	}

	switch cfg.KeyValue.Backend {
	case "memory", "redis":
	case "sql":
		switch cfg.KeyValue.Driver {
		case "sqlite3", "pgx", "postgres":
		default:
			return fmt.Errorf("keyvalue.driver must be sqlite3, pgx or postgres, got: %s", cfg.KeyValue.Driver)
		}
		if cfg.KeyValue.DSN == "" {
			return fmt.Errorf("keyvalue.dsn is required for the sql backend")
		}
	default:
		return fmt.Errorf("keyvalue.backend must be memory, redis or sql, got: %s", cfg.KeyValue.Backend)
	}

	if cfg.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cache.default_ttl must not be negative, got: %s", cfg.Cache.DefaultTTL)
	}

	if _, err := language.Parse(cfg.Language.Default); err != nil {
		return fmt.Errorf("language.default is not a valid language tag: %s", cfg.Language.Default)
	}
	for _, id := range cfg.Language.Supported {
		if _, err := language.Parse(id); err != nil {
			return fmt.Errorf("language.supported contains an invalid language tag: %s", id)
		}
	}
	return nil
}
