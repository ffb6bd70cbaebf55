package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// Chatwoot API configuration
	Chatwoot struct {
		BaseURL   string
		AccountID string
		InboxID   string
		APIToken  string
	}

	// Unipile API configuration
	Unipile struct {
		BaseURL string
		APIKey  string
	}

	// Webhook ingestion configuration
	Webhook struct {
		// Secret is compared against X-Webhook-Secret when set; empty
		// disables the check.
		Secret string
	}

	// Dedupe cache configuration
	Dedupe struct {
		TTL           time.Duration
		Backend       string // "postgres" or "redis"
		SweepInterval time.Duration
	}

	// Outbound HTTP client configuration
	Outbound struct {
		Timeout time.Duration
		Retries int
	}

	// JWT configuration (dashboard API)
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// Dashboard admin login
	Dashboard struct {
		AdminEmail        string
		AdminPasswordHash string
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		TrustedProxies []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8080")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Database config
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "bridge")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		// Chatwoot config
		instance.Chatwoot.BaseURL = strings.TrimRight(getEnvString("CHATWOOT_BASE_URL", ""), "/")
		instance.Chatwoot.AccountID = getEnvString("CHATWOOT_ACCOUNT_ID", "")
		instance.Chatwoot.InboxID = getEnvString("CHATWOOT_INBOX_ID", "")
		instance.Chatwoot.APIToken = getEnvString("CHATWOOT_API_TOKEN", "")

		// Unipile config
		instance.Unipile.BaseURL = strings.TrimRight(getEnvString("UNIPILE_BASE_URL", "https://api26.unipile.com:15609/api/v1"), "/")
		instance.Unipile.APIKey = getEnvString("UNIPILE_API_KEY", "")

		// Webhook config
		instance.Webhook.Secret = getEnvString("WEBHOOK_SECRET", "")

		// Dedupe config
		instance.Dedupe.TTL = getEnvDuration("DEDUPE_TTL", 120*time.Second)
		instance.Dedupe.Backend = getEnvString("DEDUPE_BACKEND", "postgres")
		instance.Dedupe.SweepInterval = getEnvDuration("DEDUPE_SWEEP_INTERVAL", 10*time.Minute)

		// Outbound client config
		instance.Outbound.Timeout = getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
		instance.Outbound.Retries = getEnvInt("REQUEST_RETRIES", 2)

		// JWT config
		instance.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
		instance.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

		// Dashboard admin login
		instance.Dashboard.AdminEmail = getEnvString("DASHBOARD_ADMIN_EMAIL", "")
		instance.Dashboard.AdminPasswordHash = getEnvString("DASHBOARD_ADMIN_PASSWORD_HASH", "")

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 20))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 40)
		instance.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
		instance.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20) // 1MB

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
