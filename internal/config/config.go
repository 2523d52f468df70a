// Package config loads server settings from an optional config.yaml and
// PROMPTVAULT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Port              string        `mapstructure:"port"`
	DatabaseURL       string        `mapstructure:"database_url"`
	Storage           string        `mapstructure:"storage"`
	LogLevel          string        `mapstructure:"log_level"`
	DBConnectAttempts uint          `mapstructure:"db_connect_attempts"`
	// PruneInterval is how often stale idempotency keys are dropped; zero disables.
	PruneInterval     time.Duration `mapstructure:"prune_interval"`
}

// Load reads cfgFile, or config.yaml in the working directory when cfgFile
// is empty. A missing default file is not an error. Environment variables
// override the file.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("storage", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_connect_attempts", 5)
	v.SetDefault("prune_interval", time.Hour)

	// Environment variables with PROMPTVAULT_ prefix
	v.SetEnvPrefix("PROMPTVAULT")
	v.AutomaticEnv()
	// Plain DATABASE_URL and PORT are honoured too, as most platforms set them.
	if err := v.BindEnv("database_url", "PROMPTVAULT_DATABASE_URL", "DATABASE_URL"); err != nil {
		return Config{}, fmt.Errorf("bind database_url: %w", err)
	}
	if err := v.BindEnv("port", "PROMPTVAULT_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalize picks the storage backend when unset and rejects combinations
// that cannot start.
func (c *Config) normalize() error {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	if c.Storage == "" {
		c.Storage = StorageMemory
		if c.DatabaseURL != "" {
			c.Storage = StoragePostgres
		}
	}

	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: storage postgres requires database_url")
		}
	default:
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	}

	if c.DBConnectAttempts == 0 {
		c.DBConnectAttempts = 1
	}
	if _, err := c.parseLevel(); err != nil {
		return err
	}
	return nil
}

func (c Config) parseLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// SlogLevel returns the configured log level; Load has already validated it.
func (c Config) SlogLevel() slog.Level {
	l, _ := c.parseLevel()
	return l
}
