package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment" validate:"oneof=development production"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Weather     WeatherConfig `toml:"weather"`
	Runner      RunnerConfig  `toml:"runner"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
	Badger BadgerConfig `toml:"badger"`
}

// SQLiteConfig represents relational-store tuning. The data source itself
// comes from the orchestrator settings blob, not from here.
type SQLiteConfig struct {
	CacheSizeMB   int  `toml:"cache_size_mb" validate:"gt=0"`
	BusyTimeoutMS int  `toml:"busy_timeout_ms" validate:"gt=0"`
	WALMode       bool `toml:"wal_mode"`
}

// BadgerConfig represents table-store tuning. The database path comes from
// the orchestrator settings blob.
type BadgerConfig struct {
	ResetOnStartup bool `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`                                       // "stdout", "file"
	TimeFormat string   `toml:"time_format"`                                  // Time format for logs
}

// WeatherConfig contains configuration for the external weather dependency.
type WeatherConfig struct {
	BaseURL         string `toml:"base_url" validate:"required,url"`
	Location        string `toml:"location" validate:"required"`         // URL path form, e.g. "Los+Angeles,CA"
	DisplayLocation string `toml:"display_location" validate:"required"` // Human form used in log messages
	RequestTimeout  string `toml:"request_timeout"`                      // e.g. "30s"
	RateLimit       int    `toml:"rate_limit" validate:"gte=1"`          // Requests per second
}

// Timeout parses the configured request timeout, falling back to 30 seconds.
func (w WeatherConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(w.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// RunnerConfig contains execution-wide settings.
type RunnerConfig struct {
	Actor string `toml:"actor" validate:"required"` // Audit-column actor for relational writes
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings belong in jobrunner.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				CacheSizeMB:   64,
				BusyTimeoutMS: 5000,
				WALMode:       true,
			},
			Badger: BadgerConfig{
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Weather: WeatherConfig{
			BaseURL:         "https://wttr.in",
			Location:        "Los+Angeles,CA",
			DisplayLocation: "Los Angeles, CA",
			RequestTimeout:  "30s",
			RateLimit:       1,
		},
		Runner: RunnerConfig{
			Actor: "JobExecutor",
		},
	}
}

// LoadFromFiles loads configuration starting from defaults, with each file
// overriding the previous ones. Zero paths is valid and yields the defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration using go-playground/validator tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
