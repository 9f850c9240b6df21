package common

import (
	"os"
	"strconv"
	"time"

	"github.com/portfolio-labs/extraction-pipeline/constants"
)

// Config holds all application configuration
type Config struct {
	Cache  CacheConfig
	Oracle OracleConfig
}

// CacheConfig holds L2 cache store configuration.
type CacheConfig struct {
	Driver  string // "sqlite", "postgres", or "" for L1-only
	DSN     string
	TTL     time.Duration
	MaxL1   int
	Timeout time.Duration
}

// OracleConfig holds extraction-oracle configuration.
type OracleConfig struct {
	APIKey        string
	BaseURL       string
	FastModel     string
	AccurateModel string
	Timeout       time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Driver:  getEnv("CACHE_DRIVER", "sqlite"),
			DSN:     getEnv("CACHE_DSN", "file:extraction-cache.db"),
			TTL:     getEnvAsDuration("CACHE_TTL", constants.CacheTTL),
			MaxL1:   getEnvAsInt("CACHE_L1_MAX", constants.L1MaxEntries),
			Timeout: getEnvAsDuration("CACHE_TIMEOUT", 3*time.Second),
		},
		Oracle: OracleConfig{
			APIKey:        getEnv("OPENAI_API_KEY", ""),
			BaseURL:       getEnv("OPENAI_BASE_URL", ""),
			FastModel:     getEnv("ORACLE_FAST_MODEL", "gpt-4o-mini"),
			AccurateModel: getEnv("ORACLE_ACCURATE_MODEL", "gpt-4o"),
			Timeout:       getEnvAsDuration("ORACLE_TIMEOUT", constants.CallTimeout),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Oracle.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Cache.Driver == "postgres" && c.Cache.DSN == "" {
		return NewAppError("CONFIG_ERROR", "CACHE_DSN is required for the postgres cache driver", ErrInvalidInput)
	}
	return nil
}
