// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback), optionally seeded from a .env file
//
// Example usage:
//
//	cfg, _ := config.LoadOrEnv("config.yaml")
//	dbPath := cfg.Storage.DatabasePath
//	horizon := cfg.Recurrence.HorizonDays
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultDatabasePath      = "recurrence.db"
	DefaultHorizonDays       = 14
	DefaultMaxParallelOwners = 4
	DefaultTimezone          = "UTC"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Recurrence    RecurrenceConfig    `yaml:"recurrence"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// RecurrenceConfig holds the sweep settings
type RecurrenceConfig struct {
	// HorizonDays is how far ahead each sweep materialises expectations
	HorizonDays int `yaml:"horizon_days"`

	// CreationHorizonDays is the horizon used when a template is created
	CreationHorizonDays int `yaml:"creation_horizon_days"`

	// AutoConfirm confirms a match when the top candidate is high confidence
	AutoConfirm bool `yaml:"auto_confirm"`

	// Timezone is the IANA location used to derive "today"
	Timezone string `yaml:"timezone"`

	// MaxParallelOwners bounds concurrent per-owner sweeps
	MaxParallelOwners int `yaml:"max_parallel_owners"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: DefaultDatabasePath,
		},
		Recurrence: RecurrenceConfig{
			HorizonDays:         DefaultHorizonDays,
			CreationHorizonDays: DefaultHorizonDays,
			AutoConfirm:         true,
			Timezone:            DefaultTimezone,
			MaxParallelOwners:   DefaultMaxParallelOwners,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// Load reads and parses the config file. Keys absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECURRENCE_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECURRENCE_DB_PATH", DefaultDatabasePath),
		},
		Recurrence: RecurrenceConfig{
			HorizonDays:         getEnvInt("RECURRENCE_HORIZON_DAYS", DefaultHorizonDays),
			CreationHorizonDays: getEnvInt("RECURRENCE_CREATION_HORIZON_DAYS", DefaultHorizonDays),
			AutoConfirm:         getEnvBool("RECURRENCE_AUTO_CONFIRM", true),
			Timezone:            getEnv("RECURRENCE_TIMEZONE", DefaultTimezone),
			MaxParallelOwners:   getEnvInt("RECURRENCE_MAX_PARALLEL_OWNERS", DefaultMaxParallelOwners),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
}

// LoadOrEnv loads a .env file when present, then tries the YAML file at
// path and falls back to environment variables. The returned config is
// always usable; fileErr says why the file was skipped, so a malformed file
// can be told apart from a missing one.
func LoadOrEnv(path string) (cfg *Config, fileErr error) {
	LoadDotEnv(".env")

	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	return LoadFromEnv(), err
}

// LoadDotEnv seeds the environment from an env file. Variables already set
// win, and a missing file is not an error.
func LoadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// Validate rejects settings the sweep cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("storage.database_path is required"))
	}
	if c.Recurrence.HorizonDays <= 0 {
		errs = append(errs, fmt.Errorf("recurrence.horizon_days must be positive, got %d", c.Recurrence.HorizonDays))
	}
	if c.Recurrence.CreationHorizonDays <= 0 {
		errs = append(errs, fmt.Errorf("recurrence.creation_horizon_days must be positive, got %d", c.Recurrence.CreationHorizonDays))
	}
	if c.Recurrence.MaxParallelOwners <= 0 {
		errs = append(errs, fmt.Errorf("recurrence.max_parallel_owners must be positive, got %d", c.Recurrence.MaxParallelOwners))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Recurrence.Timezone)
	if err != nil {
		return nil, fmt.Errorf("recurrence.timezone %q: %w", c.Recurrence.Timezone, err)
	}
	return loc, nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(val); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback default
func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseBool(val); err == nil {
			return result
		}
	}
	return fallback
}
