// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultMaxUploadBytes is the exclusive upper bound on uploaded CSV files (4 MiB).
const DefaultMaxUploadBytes = 4 * 1024 * 1024

// Config holds application configuration
type Config struct {
	Port     int
	LogLevel string
	DevMode  bool

	// Upload limits
	MaxUploadBytes int64 // Files must be strictly smaller than this

	// Portfolio rules
	MinPortfolioSize        int  // Minimum number of securities required to submit
	EnforceMinPortfolioSize bool // When false the minimum is only advertised
	UniqueTickers           bool // A ticker may be held by at most one row
	UseFallbackTickers      bool // Install the static ticker list until a CSV is uploaded

	// Deletion confirmations
	DeleteConfirmTTL time.Duration
	SweepSchedule    string // cron spec for expiring stale confirmations

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	deleteTTL, err := getEnvAsDuration("DELETE_CONFIRM_TTL", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                    getEnvAsInt("INTAKE_PORT", 8080),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DevMode:                 getEnvAsBool("DEV_MODE", false),
		MaxUploadBytes:          int64(getEnvAsInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		MinPortfolioSize:        getEnvAsInt("MIN_PORTFOLIO_SIZE", 3),
		EnforceMinPortfolioSize: getEnvAsBool("ENFORCE_MIN_PORTFOLIO_SIZE", true),
		UniqueTickers:           getEnvAsBool("UNIQUE_TICKERS", true),
		UseFallbackTickers:      getEnvAsBool("USE_FALLBACK_TICKERS", false),
		DeleteConfirmTTL:        deleteTTL,
		SweepSchedule:           getEnv("SWEEP_SCHEDULE", "@every 30s"),
		ShutdownTimeout:         shutdownTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used when no environment is present.
func Default() *Config {
	return &Config{
		Port:                    8080,
		LogLevel:                "info",
		MaxUploadBytes:          DefaultMaxUploadBytes,
		MinPortfolioSize:        3,
		EnforceMinPortfolioSize: true,
		UniqueTickers:           true,
		DeleteConfirmTTL:        2 * time.Minute,
		SweepSchedule:           "@every 30s",
		ShutdownTimeout:         10 * time.Second,
	}
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.MinPortfolioSize < 0 {
		return fmt.Errorf("MIN_PORTFOLIO_SIZE must not be negative, got %d", c.MinPortfolioSize)
	}
	if c.DeleteConfirmTTL <= 0 {
		return fmt.Errorf("DELETE_CONFIRM_TTL must be positive, got %s", c.DeleteConfirmTTL)
	}
	if c.SweepSchedule == "" {
		return fmt.Errorf("SWEEP_SCHEDULE must not be empty")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return d, nil
}
