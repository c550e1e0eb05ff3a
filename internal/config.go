package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Run goose migrations on server start
	MigrateOnStart bool

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string // Optional custom domain URL
	R2Endpoint        string // Overrides the account endpoint, e.g. for MinIO

	// Largest single upload in bytes, independent of the tier cap
	UploadMaxBytes int64

	// Subscription expiry sweep
	SweepEnabled     bool // false when an external cron runs `kasirctl sweep`
	SweepInterval    time.Duration
	SweepTimeout     time.Duration
	SweepConcurrency int

	// Manual sweep trigger, requests per client per minute
	SweepTriggerPerMinute int

	// Tokenizer used to estimate prompt size
	TokenEncodingModel string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),

		UploadMaxBytes: getEnvInt64("UPLOAD_MAX_BYTES", 25<<20),

		SweepEnabled:     getEnvBool("SWEEP_ENABLED", true),
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", 15*time.Minute),
		SweepTimeout:     getEnvDuration("SWEEP_TIMEOUT", 5*time.Minute),
		SweepConcurrency: getEnvInt("SWEEP_CONCURRENCY", 8),

		SweepTriggerPerMinute: getEnvInt("SWEEP_TRIGGER_PER_MINUTE", 6),

		TokenEncodingModel: getEnv("TOKEN_ENCODING_MODEL", "gpt-4o"),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageProvider {
	case "local":
	case "r2":
		if c.R2AccountID == "" && c.R2Endpoint == "" {
			return fmt.Errorf("R2_ACCOUNT_ID or R2_ENDPOINT is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got: %d", c.UploadMaxBytes)
	}
	if c.SweepInterval < time.Minute {
		return fmt.Errorf("SWEEP_INTERVAL must be at least 1m, got: %s", c.SweepInterval)
	}
	if c.SweepTimeout < time.Second {
		return fmt.Errorf("SWEEP_TIMEOUT must be at least 1s, got: %s", c.SweepTimeout)
	}
	if c.SweepConcurrency < 1 {
		return fmt.Errorf("SWEEP_CONCURRENCY must be at least 1, got: %d", c.SweepConcurrency)
	}
	if c.SweepTriggerPerMinute < 1 {
		return fmt.Errorf("SWEEP_TRIGGER_PER_MINUTE must be at least 1, got: %d", c.SweepTriggerPerMinute)
	}
	return nil
}

// IsSecure reports whether HTTPS-only headers should be sent.
func (c *Config) IsSecure() bool {
	return c.Env != "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
