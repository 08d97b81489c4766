// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// Lemon Squeezy
	LemonSqueezyAPIURL        string // License API base (activate/validate/deactivate)
	LemonSqueezyWebhookSecret string // HMAC secret for webhook signature verification
	LemonSqueezyCheckoutURL   string // Checkout page shown to free users

	// Quota
	FreeLimit int // Free-tier identity generations per calendar month

	// Google OAuth (agent sign-in)
	GoogleClientID string

	// Temp mailbox provider
	MailAPIURL string

	// Agent local state
	DataDir string // Directory for the agent state file (default: ~/.config/privacyfill)

	// CORS
	CORSOrigins []string

	// Request handling
	RequestTimeout time.Duration

	// Scale-to-zero: stop the server after this long with no traffic.
	// Zero disables idle shutdown.
	IdleTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:privacyfill.db?_journal=WAL&_timeout=5000"),

		LemonSqueezyAPIURL:        getEnv("LEMONSQUEEZY_API_URL", "https://api.lemonsqueezy.com/v1"),
		LemonSqueezyWebhookSecret: getEnv("LEMONSQUEEZY_WEBHOOK_SECRET", ""),
		LemonSqueezyCheckoutURL:   getEnv("LEMONSQUEEZY_CHECKOUT_URL", ""),

		FreeLimit: getEnvInt("FREE_LIMIT", 10),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		MailAPIURL: getEnv("MAIL_API_URL", "https://api.mail.tm"),

		DataDir: getEnv("PRIVACYFILL_DATA_DIR", ""),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"*"}),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		IdleTimeout: getEnvDuration("IDLE_TIMEOUT", 0),
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".config", "privacyfill")
	}

	if cfg.FreeLimit < 0 {
		return nil, fmt.Errorf("FREE_LIMIT must be non-negative, got %d", cfg.FreeLimit)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
