package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName    string
	AppVersion string
	Port       string

	Environment   string
	AuthJWTSecret string
	AdminAPIToken string
	AdminUser     string
	AdminPassword string

	// Shared secret the Git platforms sign webhooks with. Empty disables
	// signature validation.
	WebhookSecret string

	// Key for encrypting sensitive destination config fields at rest.
	EncryptionKey string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// Delivery retry schedule.
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	RetryBackoffBase  float64

	// Webhook endpoint rate limit, requests per minute per client IP.
	RateLimitPerMinute int

	// Outcome rows older than this many days are pruned. Zero disables.
	OutcomeRetentionDays int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "webhook-bridge"),
		AppVersion:    getenv("APP_VERSION", "1.0.0"),
		Port:          getenv("PORT", "8000"),
		Environment:   getenv("ENVIRONMENT", "development"),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AdminAPIToken: strings.TrimSpace(getenv("ADMIN_API_TOKEN", "")),
		AdminUser:     getenv("ADMIN_USER", "admin"),
		AdminPassword: strings.TrimSpace(getenv("ADMIN_PASSWORD", "")),

		WebhookSecret: strings.TrimSpace(getenv("WEBHOOK_SECRET", "")),
		EncryptionKey: strings.TrimSpace(getenv("ENCRYPTION_KEY", "")),

		DBType:            getenv("DB_TYPE", "postgres"),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "webhook_bridge"),
		DBUser:            getenv("DB_USER", "postgres"),
		DBPassword:        getenv("DB_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DB_SSL_MODE", "disable"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 100),
		DBConnMaxLifetime: getenvInt("DB_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DB_CONN_MAX_IDLE_TIME", 60),

		RetryMaxAttempts:  getenvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: time.Duration(getenvInt("RETRY_INITIAL_DELAY_SECONDS", 1)) * time.Second,
		RetryMaxDelay:     time.Duration(getenvInt("RETRY_MAX_DELAY_SECONDS", 60)) * time.Second,
		RetryBackoffBase:  getenvFloat("RETRY_BACKOFF_BASE", 2.0),

		RateLimitPerMinute:   getenvInt("RATE_LIMIT_PER_MINUTE", 100),
		OutcomeRetentionDays: getenvInt("EVENT_RETENTION_DAYS", 90),
	}

	return &cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
