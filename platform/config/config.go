// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"net/http"
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

// AuthServiceConfig provides settings needed by the session auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

// RegistrationTokenConfig provides settings for the registration token service.
type RegistrationTokenConfig interface {
	GetRegistrationTokenSecret() string
	GetRegistrationTokenTTL() time.Duration
	GetPaymentTokenTTL() time.Duration
}

// CookieConfig provides settings for refresh token cookies.
type CookieConfig interface {
	GetRefreshCookieName() string
	GetRefreshCookieDomain() string
	GetRefreshCookiePath() string
	GetRefreshCookieSecure() bool
	GetRefreshCookieSameSite() http.SameSite
	GetRefreshTokenTTL() time.Duration
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetBusinessName() string
	GetAdminNotifyEmail() string
	GetCurrency() string
}

// OnboardingConfig provides policy settings for the onboarding questionnaire.
type OnboardingConfig interface {
	GetOnboardingAllowResubmit() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketResumes() string
	GetMinioBucketProfilePhotos() string
	IsMinIOEnabled() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
}

// Config holds all application settings loaded from the environment.
// It is constructed once at process start and immutable afterwards.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	RegistrationTokenSecret string
	RegistrationTokenTTL    time.Duration
	PaymentTokenTTL         time.Duration

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	AppBaseURL       string
	BusinessName     string
	AdminNotifyEmail string
	Currency         string

	EmailEnabled     bool
	EmailProvider    string
	BrevoAPIKey      string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	RefreshCookieName     string
	RefreshCookieDomain   string
	RefreshCookiePath     string
	RefreshCookieSecure   bool
	RefreshCookieSameSite http.SameSite

	OnboardingAllowResubmit bool

	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinIOMaxFileSize         int64
	MinioBucketResumes       string
	MinioBucketProfilePhotos string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
}

// GetEnv returns the application environment name.
func (c *Config) GetEnv() string { return c.Env }

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig / AuthServiceConfig implementation
func (c *Config) GetJWTAccessSecret() string        { return c.JWTAccessSecret }
func (c *Config) GetJWTRefreshSecret() string       { return c.JWTRefreshSecret }
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

// RegistrationTokenConfig implementation
func (c *Config) GetRegistrationTokenSecret() string     { return c.RegistrationTokenSecret }
func (c *Config) GetRegistrationTokenTTL() time.Duration { return c.RegistrationTokenTTL }
func (c *Config) GetPaymentTokenTTL() time.Duration      { return c.PaymentTokenTTL }

// CookieConfig implementation
func (c *Config) GetRefreshCookieName() string            { return c.RefreshCookieName }
func (c *Config) GetRefreshCookieDomain() string          { return c.RefreshCookieDomain }
func (c *Config) GetRefreshCookiePath() string            { return c.RefreshCookiePath }
func (c *Config) GetRefreshCookieSecure() bool            { return c.RefreshCookieSecure }
func (c *Config) GetRefreshCookieSameSite() http.SameSite { return c.RefreshCookieSameSite }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }
func (c *Config) GetBusinessName() string     { return c.BusinessName }
func (c *Config) GetAdminNotifyEmail() string { return c.AdminNotifyEmail }
func (c *Config) GetCurrency() string         { return c.Currency }

// OnboardingConfig implementation
func (c *Config) GetOnboardingAllowResubmit() bool { return c.OnboardingAllowResubmit }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string            { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string           { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string           { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64          { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketResumes() string       { return c.MinioBucketResumes }
func (c *Config) GetMinioBucketProfilePhotos() string { return c.MinioBucketProfilePhotos }
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailProvider := strings.ToLower(getEnv("EMAIL_PROVIDER", "brevo"))
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	refreshCookieSecure := strings.EqualFold(getEnv("REFRESH_COOKIE_SECURE", ""), "true")
	if getEnv("REFRESH_COOKIE_SECURE", "") == "" {
		refreshCookieSecure = strings.EqualFold(getEnv("APP_ENV", "development"), "production")
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		JWTRefreshSecret:         getEnv("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:           mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		RefreshTokenTTL:          mustDuration(getEnv("JWT_REFRESH_TTL", "720h")),
		RegistrationTokenSecret:  getEnv("REGISTRATION_TOKEN_SECRET", ""),
		RegistrationTokenTTL:     mustDuration(getEnv("REGISTRATION_TOKEN_TTL", "72h")),
		PaymentTokenTTL:          mustDuration(getEnv("PAYMENT_TOKEN_TTL", "168h")),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:               getEnv("APP_BASE_URL", "http://localhost:4200"),
		BusinessName:             getEnv("BUSINESS_NAME", "Concierge Careers"),
		AdminNotifyEmail:         getEnv("ADMIN_NOTIFY_EMAIL", ""),
		Currency:                 strings.ToUpper(getEnv("CURRENCY", "USD")),
		EmailEnabled:             emailEnabled,
		EmailProvider:            emailProvider,
		BrevoAPIKey:              getEnv("BREVO_API_KEY", ""),
		SMTPHost:                 getEnv("SMTP_HOST", ""),
		SMTPPort:                 int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Concierge Careers"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		RefreshCookieName:        getEnv("REFRESH_COOKIE_NAME", "concierge_refresh"),
		RefreshCookieDomain:      getEnv("REFRESH_COOKIE_DOMAIN", ""),
		RefreshCookiePath:        getEnv("REFRESH_COOKIE_PATH", "/api/v1/auth"),
		RefreshCookieSecure:      refreshCookieSecure,
		RefreshCookieSameSite:    parseSameSite(getEnv("REFRESH_COOKIE_SAMESITE", "Lax")),
		OnboardingAllowResubmit:  strings.EqualFold(getEnv("ONBOARDING_ALLOW_RESUBMIT", "false"), "true"),
		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:         mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "20971520")),
		MinioBucketResumes:       getEnv("MINIO_BUCKET_RESUMES", "client-resumes"),
		MinioBucketProfilePhotos: getEnv("MINIO_BUCKET_PROFILE_PHOTOS", "profile-photos"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE_NAME", "notifications"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cfg.RegistrationTokenSecret == "" {
		return nil, fmt.Errorf("REGISTRATION_TOKEN_SECRET is required")
	}
	if cfg.EmailEnabled {
		switch cfg.EmailProvider {
		case "brevo":
			if cfg.BrevoAPIKey == "" {
				return nil, fmt.Errorf("BREVO_API_KEY is required when EMAIL_PROVIDER is brevo")
			}
		case "smtp":
			if cfg.SMTPHost == "" {
				return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is smtp")
			}
		default:
			return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
		}
		if cfg.EmailFromAddress == "" {
			return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
		}
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}
