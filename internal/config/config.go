package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// SignerConfig holds the key material and signature metadata for sealing.
type SignerConfig struct {
	KeyFile  string
	CertFile string
	Reason   string
	Location string
}

// WebhookConfig holds outbound webhook delivery settings.
type WebhookConfig struct {
	URL        string
	Secret     string
	TimeoutSec int
}

// CertificateConfig holds the audit certificate rendering service settings.
type CertificateConfig struct {
	URL        string
	TimeoutSec int
}

// AnalyticsConfig holds event capture settings.
type AnalyticsConfig struct {
	Endpoint string
	APIKey   string
}

// JobsConfig holds seal job worker settings.
type JobsConfig struct {
	PollIntervalSec int
	MaxAttempts     int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Signer      SignerConfig
	Webhook     WebhookConfig
	Certificate CertificateConfig
	Analytics   AnalyticsConfig
	Jobs        JobsConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Signer: SignerConfig{
			KeyFile:  getEnv("SIGNER_KEY_FILE", ""),
			CertFile: getEnv("SIGNER_CERT_FILE", ""),
			Reason:   getEnv("SIGNER_REASON", "Signed by Docseal"),
			Location: getEnv("SIGNER_LOCATION", ""),
		},
		Webhook: WebhookConfig{
			URL:        getEnv("WEBHOOK_URL", ""),
			Secret:     getEnv("WEBHOOK_SECRET", ""),
			TimeoutSec: getEnvInt("WEBHOOK_TIMEOUT_SEC", 10),
		},
		Certificate: CertificateConfig{
			URL:        getEnv("CERTIFICATE_URL", ""),
			TimeoutSec: getEnvInt("CERTIFICATE_TIMEOUT_SEC", 30),
		},
		Analytics: AnalyticsConfig{
			Endpoint: getEnv("ANALYTICS_ENDPOINT", ""),
			APIKey:   getEnv("ANALYTICS_API_KEY", ""),
		},
		Jobs: JobsConfig{
			PollIntervalSec: getEnvInt("JOBS_POLL_INTERVAL_SEC", 5),
			MaxAttempts:     getEnvInt("JOBS_MAX_ATTEMPTS", 3),
		},
	}
}

// Timeout returns the webhook delivery timeout as a duration.
func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Timeout returns the certificate rendering timeout as a duration.
func (c CertificateConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// PollInterval returns the queue polling interval as a duration.
func (c JobsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
