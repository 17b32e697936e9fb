package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"-"`
	DBName     string `env:"DB_NAME" envDefault:"spacradar"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Market data API
	MarketAPIKey   string `env:"MARKET_API_KEY" envDefault:"-"`
	MarketBaseURL  string `env:"MARKET_BASE_URL" envDefault:"https://api.spacradar-feed.io"`
	RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	RequestsPerSec int    `env:"REQUESTS_PER_SEC" envDefault:"5"`

	// Delivery
	TelegramBotToken  string `env:"TELEGRAM_BOT_TOKEN" envDefault:"-"`
	TelegramChatID    int64  `env:"TELEGRAM_CHAT_ID" envDefault:"0"`
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL" envDefault:"-"`

	// Pipeline
	WatchlistPath string `env:"WATCHLIST_PATH" envDefault:"watchlist.yaml"`
	ReportsDir    string `env:"REPORTS_DIR" envDefault:"reports"`
	Schedule      string `env:"SCHEDULE" envDefault:"30 22 * * 1-5"` // daily after US close, weekdays
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.DBHost = getEnvWithDefault("DB_HOST", "localhost")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = getEnvWithDefault("DB_USER", "postgres")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvWithDefault("DB_NAME", "spacradar")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.MarketAPIKey = os.Getenv("MARKET_API_KEY")
	cfg.MarketBaseURL = getEnvWithDefault("MARKET_BASE_URL", "https://api.spacradar-feed.io")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)
	cfg.DiscordWebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")

	cfg.WatchlistPath = getEnvWithDefault("WATCHLIST_PATH", "watchlist.yaml")
	cfg.ReportsDir = getEnvWithDefault("REPORTS_DIR", "reports")
	cfg.Schedule = getEnvWithDefault("SCHEDULE", "30 22 * * 1-5")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
