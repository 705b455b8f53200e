package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Storefront data API
	APIURL       string        `env:"STOREFRONT_API_URL" default:"http://localhost:3333"`
	APITimeout   time.Duration `env:"API_TIMEOUT" default:"10s"`
	APIRateLimit float64       `env:"API_RATE_LIMIT" default:"5"`
	APIRateBurst int           `env:"API_RATE_BURST" default:"10"`

	// Redis snapshot cache, disabled when REDIS_URL is empty
	RedisURL      string        `env:"REDIS_URL"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	SnapshotTTL   time.Duration `env:"SNAPSHOT_TTL" default:"30s"`

	// Session tokens are verified locally only when a secret is configured
	SessionSecret string `env:"SESSION_SECRET"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// a missing .env is fine, system env vars still apply
	_ = godotenv.Load(".env")

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}

	// Data API
	if err := loadEnvString(&config.APIURL, "STOREFRONT_API_URL", "http://localhost:3333"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.APITimeout, "API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvFloat(&config.APIRateLimit, "API_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.APIRateBurst, "API_RATE_BURST", 10); err != nil {
		return nil, err
	}

	// Redis
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.SnapshotTTL, "SNAPSHOT_TTL", 30*time.Second); err != nil {
		return nil, err
	}

	// Session
	if err := loadEnvString(&config.SessionSecret, "SESSION_SECRET", ""); err != nil {
		return nil, err
	}

	// Logging
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, "STOREFRONT_API_URL must be an absolute URL")
	}
	if c.APITimeout <= 0 {
		errors = append(errors, "API_TIMEOUT must be positive")
	}
	if c.APIRateLimit <= 0 {
		errors = append(errors, "API_RATE_LIMIT must be positive")
	}
	if c.APIRateBurst < 1 {
		errors = append(errors, "API_RATE_BURST must be at least 1")
	}
	if c.SnapshotTTL < 0 {
		errors = append(errors, "SNAPSHOT_TTL must not be negative")
	}

	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	// Validate log format
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		errors = append(errors, "SESSION_SECRET should be at least 32 characters long")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// CacheEnabled reports whether catalog snapshots go through redis.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
