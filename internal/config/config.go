package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	DatabasePath string
	LogLevel     string

	// Competition rules
	StartingCash        decimal.Decimal // fixed starting balance per user
	MaxEligiblePrice    decimal.Decimal // "penny stock" price ceiling
	EnforcePriceCeiling bool            // reject trades above the ceiling at write time

	SessionTTL           time.Duration
	QuoteRefreshSchedule string // cron spec for the quote cache pre-warm job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	startingCash, err := getEnvAsDecimal("STARTING_CASH", "500.00")
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}

	maxPrice, err := getEnvAsDecimal("MAX_ELIGIBLE_PRICE", "5.00")
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_ELIGIBLE_PRICE: %w", err)
	}

	cfg := &Config{
		Port:                 getEnvAsInt("PORT", 8080),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		DatabasePath:         getEnv("DATABASE_PATH", "./data/trades.db"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		StartingCash:         startingCash,
		MaxEligiblePrice:     maxPrice,
		EnforcePriceCeiling:  getEnvAsBool("ENFORCE_PRICE_CEILING", false),
		SessionTTL:           time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 720)) * time.Hour,
		QuoteRefreshSchedule: getEnv("QUOTE_REFRESH_SCHEDULE", "0 */15 * * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if !c.StartingCash.IsPositive() {
		return fmt.Errorf("STARTING_CASH must be positive")
	}

	if !c.MaxEligiblePrice.IsPositive() {
		return fmt.Errorf("MAX_ELIGIBLE_PRICE must be positive")
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

func getEnvAsDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return decimal.NewFromString(value)
}
