// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// RedisConfig provides settings for the redis cache client.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// WhatsAppConfig provides settings for the WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// JobsConfig provides the assignment protocol constants.
// Soft-lock TTL policy range is 30-60s; cooldown and OTP TTLs are fixed
// product decisions surfaced here so tests can shrink them.
type JobsConfig interface {
	GetSoftLockTTL() time.Duration
	GetRejectionCooldown() time.Duration
	GetCompletionCodeTTL() time.Duration
	GetCompletionCodeDigits() int
}

// TrustConfig provides settings for the trust score engine.
type TrustConfig interface {
	GetTrustCacheTTL() time.Duration
	GetTrustSweepStaleAfter() time.Duration
}

// =============================================================================
// Config Struct
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	WhatsAppURL      string
	WhatsAppKey      string
	WhatsAppDeviceID string

	SoftLockTTL          time.Duration
	RejectionCooldown    time.Duration
	CompletionCodeTTL    time.Duration
	CompletionCodeDigits int

	TrustCacheTTL        time.Duration
	TrustSweepStaleAfter time.Duration
}

// Load reads configuration from environment variables, consulting a .env
// file when present.
func Load() (*Config, error) {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),

		CORSAllowAll:   getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "")),
		CORSAllowCreds: getEnvBool("CORS_ALLOW_CREDENTIALS", true),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getEnvBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),

		EmailEnabled:     getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "FieldServe"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@fieldserve.local"),

		WhatsAppURL:      os.Getenv("WHATSAPP_URL"),
		WhatsAppKey:      os.Getenv("WHATSAPP_KEY"),
		WhatsAppDeviceID: os.Getenv("WHATSAPP_DEVICE_ID"),

		SoftLockTTL:          getEnvDuration("SOFT_LOCK_TTL", 45*time.Second),
		RejectionCooldown:    getEnvDuration("REJECTION_COOLDOWN", 5*time.Minute),
		CompletionCodeTTL:    getEnvDuration("COMPLETION_CODE_TTL", 30*time.Minute),
		CompletionCodeDigits: getEnvInt("COMPLETION_CODE_DIGITS", 6),

		TrustCacheTTL:        getEnvDuration("TRUST_CACHE_TTL", 10*time.Minute),
		TrustSweepStaleAfter: getEnvDuration("TRUST_SWEEP_STALE_AFTER", 24*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}
	if cfg.SoftLockTTL < 30*time.Second || cfg.SoftLockTTL > 60*time.Second {
		return nil, fmt.Errorf("SOFT_LOCK_TTL must be within the 30s-60s policy window, got %s", cfg.SoftLockTTL)
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string        { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool      { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string   { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool    { return c.CORSAllowCreds }
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }
func (c *Config) GetEmailEnabled() bool      { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string   { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetWhatsAppURL() string     { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string     { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

func (c *Config) GetSoftLockTTL() time.Duration       { return c.SoftLockTTL }
func (c *Config) GetRejectionCooldown() time.Duration { return c.RejectionCooldown }
func (c *Config) GetCompletionCodeTTL() time.Duration { return c.CompletionCodeTTL }
func (c *Config) GetCompletionCodeDigits() int        { return c.CompletionCodeDigits }

func (c *Config) GetTrustCacheTTL() time.Duration        { return c.TrustCacheTTL }
func (c *Config) GetTrustSweepStaleAfter() time.Duration { return c.TrustSweepStaleAfter }

// =============================================================================
// Env helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
