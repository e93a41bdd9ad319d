// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the portfolio database
	Port     int
	DevMode  bool
	LogLevel string

	// Quote providers
	AlphaVantageAPIKey     string
	AlphaVantageBaseURL    string
	AlphaVantageDailyLimit int // Free tier: 25 req/day
	TwelveDataAPIKey       string
	TwelveDataBaseURL      string

	// Email delivery
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPUseTLS        bool

	// Advisory (LLM) capability
	GeminiAPIKey     string
	GeminiModel      string
	AdvisoryTimeout  time.Duration
	AdvisoryProvider string // auto | gemini | off

	// Alert monitor
	AlertCheckInterval time.Duration
	AlertCooldown      time.Duration
	DailySummaryHour   int // hour of day (UTC) for the daily summary alert

	// Risk engine defaults
	MonteCarloPaths       int
	VaRConfidenceLevels   []float64
	VaRTimeHorizons       []int
	DistributionModel     string // auto | normal | student_t | lognormal | exponential
	MaxPortfolioPositions int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CLARA_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8000),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AlphaVantageAPIKey:     getEnv("ALPHA_VANTAGE_API_KEY", ""),
		AlphaVantageBaseURL:    getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
		AlphaVantageDailyLimit: getEnvAsInt("ALPHA_VANTAGE_DAILY_LIMIT", 25),
		TwelveDataAPIKey:       getEnv("TWELVEDATA_API_KEY", ""),
		TwelveDataBaseURL:      getEnv("TWELVEDATA_BASE_URL", "https://api.twelvedata.com"),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "clara@yourdomain.com"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "CLARA Alert Agent"),
		SMTPHost:          getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:          getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:        getEnvAsBool("SMTP_USE_TLS", true),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		AdvisoryTimeout:  time.Duration(getEnvAsInt("AI_TIMEOUT_SECONDS", 20)) * time.Second,
		AdvisoryProvider: getEnv("AI_PROVIDER", "auto"),

		AlertCheckInterval: time.Duration(getEnvAsInt("ALERT_CHECK_INTERVAL_SECONDS", 30)) * time.Second,
		AlertCooldown:      time.Duration(getEnvAsInt("ALERT_COOLDOWN_HOURS", 4)) * time.Hour,
		DailySummaryHour:   getEnvAsInt("DAILY_SUMMARY_HOUR", 21),

		MonteCarloPaths:       getEnvAsInt("MONTE_CARLO_PATHS", 10000),
		VaRConfidenceLevels:   []float64{0.90, 0.95, 0.99},
		VaRTimeHorizons:       []int{1, 10},
		DistributionModel:     getEnv("DISTRIBUTION_MODEL", "auto"),
		MaxPortfolioPositions: getEnvAsInt("MAX_PORTFOLIO_POSITIONS", 100),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.AlertCheckInterval < time.Second {
		return fmt.Errorf("alert check interval must be at least 1s, got %s", c.AlertCheckInterval)
	}
	if c.MonteCarloPaths < 100 {
		return fmt.Errorf("monte carlo paths must be at least 100, got %d", c.MonteCarloPaths)
	}
	if c.DailySummaryHour < 0 || c.DailySummaryHour > 23 {
		return fmt.Errorf("daily summary hour must be 0-23, got %d", c.DailySummaryHour)
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
