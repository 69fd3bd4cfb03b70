package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBDriver   string
	DBURL      string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Sessions
	RedisURL   string
	SessionTTL time.Duration

	// Timeouts
	TurnTimeout  time.Duration
	StoreTimeout time.Duration

	// Webhook auth
	WebhookSecret string
	WebhookIssuer string

	// Links
	LinkBaseURL string

	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
}

// RateLimitConfig holds rate limiting settings for the webhook.
type RateLimitConfig struct {
	Enabled bool
	// Per source IP, across all users an adapter forwards.
	IPRequestsPerMinute int
	// Per channel user.
	UserRequestsPerMinute int
}

// SecurityHeadersConfig holds response security header settings.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// ValidationConfig holds request validation settings.
type ValidationConfig struct {
	MaxRequestBodySize int64
}

// Load loads configuration from environment variables for serving the webhook.
func Load() (*Config, error) {
	cfg, err := LoadDatabase()
	if err != nil {
		return nil, err
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required")
	}
	return cfg, nil
}

// LoadDatabase loads configuration without requiring webhook credentials,
// for commands that only touch the database.
func LoadDatabase() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults (matches podman setup: make postgres-start)
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBURL:      getEnv("DATABASE_URL", ""),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 25432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "stay_concierge"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL:   getEnv("REDIS_URL", ""),
		SessionTTL: getEnvDuration("SESSION_TTL", 7*24*time.Hour),

		TurnTimeout:  getEnvDuration("TURN_TIMEOUT", 10*time.Second),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 3*time.Second),

		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		WebhookIssuer: getEnv("WEBHOOK_ISSUER", "stay-concierge-adapter"),

		LinkBaseURL: getEnv("LINK_BASE_URL", ""),

		RateLimit: RateLimitConfig{
			Enabled:               getEnvBool("RATE_LIMIT_ENABLED", true),
			IPRequestsPerMinute:   getEnvInt("RATE_LIMIT_IP_PER_MINUTE", 600),
			UserRequestsPerMinute: getEnvInt("RATE_LIMIT_USER_PER_MINUTE", 30),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 31536000),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			XSSProtection:      getEnv("SECURITY_XSS_PROTECTION", "0"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "no-referrer"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", ""),
		},

		Validation: ValidationConfig{
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 64*1024)),
		},
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "pgx" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or pgx, got %q", cfg.DBDriver)
	}

	return cfg, nil
}

// HasRedis returns true if sessions should be kept in Redis.
func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

// HasDatabaseURL returns true if a full connection URL overrides the discrete settings.
func (c *Config) HasDatabaseURL() bool {
	return c.DBURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
