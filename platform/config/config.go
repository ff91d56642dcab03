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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// ExtractionConfig provides settings for the field extraction service client.
type ExtractionConfig interface {
	GetExtractionServiceURL() string
	GetExtractionAPIKey() string
	GetExtractionTimeout() time.Duration
	GetExtractionMaxAttempts() int
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
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
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketSubmissionAttachments() string
	IsMinIOEnabled() bool
}

// RulesConfig provides the location of the business rules file.
type RulesConfig interface {
	GetBusinessConfigPath() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                              string
	HTTPAddr                         string
	DatabaseURL                      string
	CORSAllowAll                     bool
	CORSOrigins                      []string
	CORSAllowCreds                   bool
	AppBaseURL                       string
	RedisURL                         string
	RedisTLSInsecure                 bool
	AsynqQueueName                   string
	AsynqConcurrency                 int
	ExtractionServiceURL             string
	ExtractionAPIKey                 string
	ExtractionTimeout                time.Duration
	ExtractionMaxAttempts            int
	EmailEnabled                     bool
	SMTPHost                         string
	SMTPPort                         int
	SMTPUsername                     string
	SMTPPassword                     string
	EmailFromName                    string
	EmailFromAddress                 string
	MinIOEndpoint                    string
	MinIOAccessKey                   string
	MinIOSecretKey                   string
	MinIOUseSSL                      bool
	MinIOMaxFileSize                 int64
	MinioBucketSubmissionAttachments string
	BusinessConfigPath               string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// ExtractionConfig implementation
func (c *Config) GetExtractionServiceURL() string      { return c.ExtractionServiceURL }
func (c *Config) GetExtractionAPIKey() string          { return c.ExtractionAPIKey }
func (c *Config) GetExtractionTimeout() time.Duration  { return c.ExtractionTimeout }
func (c *Config) GetExtractionMaxAttempts() int        { return c.ExtractionMaxAttempts }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketSubmissionAttachments() string {
	return c.MinioBucketSubmissionAttachments
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// RulesConfig implementation
func (c *Config) GetBusinessConfigPath() string { return c.BusinessConfigPath }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                              getEnv("APP_ENV", "development"),
		HTTPAddr:                         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                      getEnv("DATABASE_URL", ""),
		CORSAllowAll:                     corsAllowAll,
		CORSOrigins:                      corsOrigins,
		CORSAllowCreds:                   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:                       getEnv("APP_BASE_URL", "http://localhost:4200"),
		RedisURL:                         getEnv("REDIS_URL", ""),
		RedisTLSInsecure:                 strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:                   getEnv("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency:                 mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ExtractionServiceURL:             getEnv("EXTRACTION_SERVICE_URL", ""),
		ExtractionAPIKey:                 getEnv("EXTRACTION_API_KEY", ""),
		ExtractionTimeout:                mustDuration(getEnv("EXTRACTION_TIMEOUT", "30s")),
		ExtractionMaxAttempts:            mustInt(getEnv("EXTRACTION_MAX_ATTEMPTS", "3")),
		EmailEnabled:                     emailEnabled && smtpHost != "",
		SMTPHost:                         smtpHost,
		SMTPPort:                         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:                     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:                     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:                    getEnv("EMAIL_FROM_NAME", "Underwriting Workbench"),
		EmailFromAddress:                 getEnv("EMAIL_FROM_ADDRESS", ""),
		MinIOEndpoint:                    getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:                   getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:                   getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                      strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:                 mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "104857600")),
		MinioBucketSubmissionAttachments: getEnv("MINIO_BUCKET_SUBMISSION_ATTACHMENTS", "submission-attachments"),
		BusinessConfigPath:               getEnv("BUSINESS_CONFIG_PATH", "config/business.yaml"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ExtractionServiceURL == "" {
		return nil, fmt.Errorf("EXTRACTION_SERVICE_URL is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.ExtractionMaxAttempts < 1 {
		return nil, fmt.Errorf("EXTRACTION_MAX_ATTEMPTS must be at least 1")
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

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
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
