package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // timezone names resolve without system zoneinfo

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TIMEKEEPER_USER_ID
const EnvPrefix = "TIMEKEEPER_"

const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`

	// Billing defaults for materialized entries and reports
	Billing BillingConfig `yaml:"billing" envPrefix:"BILLING_"`

	// User identity used for every operation
	User UserConfig `yaml:"user" envPrefix:"USER_"`

	// Log output
	Log LogConfig `yaml:"log" envPrefix:"LOG_"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // "sqlite" or "bolt"
	Path   string `yaml:"path" env:"PATH"`
}

type BillingConfig struct {
	DefaultHourlyRate float64 `yaml:"default_hourly_rate" env:"DEFAULT_HOURLY_RATE"` // 0 means no rate
	Timezone          string  `yaml:"timezone" env:"TIMEZONE"`                       // IANA name for stats windows, empty for local
}

type UserConfig struct {
	ID   string `yaml:"id" env:"ID"`
	Name string `yaml:"name" env:"NAME"`
}

type LogConfig struct {
	Path       string `yaml:"path" env:"PATH"`
	Level      string `yaml:"level" env:"LEVEL"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
}

func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "timekeeper")
}

// DefaultConfigPath returns ~/.config/timekeeper/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	dir := configDir()

	return &Config{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(dir, "timekeeper.db"),
		},
		User: UserConfig{
			ID: os.Getenv("USER"),
		},
		Log: LogConfig{
			Path:       filepath.Join(dir, "timekeeper.log"),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load loads config from the given path, or starts from defaults if the file
// doesn't exist. Environment variables prefixed with EnvPrefix override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment. A missing file is not an error and set variables win.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate returns an error if the config cannot be used
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Billing.DefaultHourlyRate < 0 {
		return errors.New("default hourly rate cannot be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// DefaultRate returns the configured default hourly rate, or nil when unset
func (c *Config) DefaultRate() *float64 {
	if c.Billing.DefaultHourlyRate == 0 {
		return nil
	}
	rate := c.Billing.DefaultHourlyRate
	return &rate
}

// Location returns the timezone used for the stats windows
func (c *Config) Location() (*time.Location, error) {
	if c.Billing.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Billing.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Billing.Timezone, err)
	}
	return loc, nil
}

// Save writes the config to the given path
func (c *Config) Save(path string) error {
	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Marshal to YAML
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// Write to file
	return os.WriteFile(path, data, 0644)
}

// EnsureDirectories creates the database and log directories
func (c *Config) EnsureDirectories() error {
	for _, path := range []string{c.Database.Path, c.Log.Path} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
	}
	return nil
}
