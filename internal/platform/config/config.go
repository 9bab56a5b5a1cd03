package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"kpireview/internal/platform/filestore"
)

type Config struct {
	Addr                  string
	DatabaseURL           string
	JWTSecret             string
	TokenTTL              time.Duration
	Environment           string
	Timezone              string
	MigrationsDir         string
	SeedAdminHandle       string
	SeedAdminPassword     string
	SeedAdminName         string
	AllowSelfSignup       bool
	RunMigrations         bool
	RunSeed               bool
	MaxBodyBytes          int64
	MaxUploadBytes        int64
	RateLimitPerMinute    int
	ReviewWritesPerHour   int
	RefreshInterval       time.Duration
	AuditRetentionDays    int
	MetricsEnabled        bool
	FileStoreBackend      string
	FileStoreDir          string
	FileStoreBaseURL      string
	AzureConnectionString string
	AzureContainer        string
}

// Load reads the environment, after applying a .env file when one exists.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "err", err)
	}
	return Config{
		Addr:                  getEnv("APP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		TokenTTL:              getEnvDuration("TOKEN_TTL", 12*time.Hour),
		Environment:           getEnv("APP_ENV", "development"),
		Timezone:              getEnv("REVIEW_TIMEZONE", "UTC"),
		MigrationsDir:         getEnv("MIGRATIONS_DIR", "migrations"),
		SeedAdminHandle:       getEnv("SEED_ADMIN_HANDLE", ""),
		SeedAdminPassword:     getEnv("SEED_ADMIN_PASSWORD", ""),
		SeedAdminName:         getEnv("SEED_ADMIN_NAME", "Administrator"),
		AllowSelfSignup:       getEnvBool("ALLOW_SELF_SIGNUP", true),
		RunMigrations:         getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:               getEnvBool("RUN_SEED", true),
		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 11<<20)),
		MaxUploadBytes:        int64(getEnvInt("MAX_UPLOAD_BYTES", int(filestore.MaxUploadBytes))),
		RateLimitPerMinute:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ReviewWritesPerHour:   getEnvInt("REVIEW_WRITES_PER_HOUR", 120),
		RefreshInterval:       getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),
		AuditRetentionDays:    getEnvInt("AUDIT_RETENTION_DAYS", 0),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		FileStoreBackend:      getEnv("FILESTORE_BACKEND", filestore.BackendLocal),
		FileStoreDir:          getEnv("FILESTORE_DIR", "storage/files"),
		FileStoreBaseURL:      getEnv("FILESTORE_BASE_URL", "/files"),
		AzureConnectionString: getEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
		AzureContainer:        getEnv("AZURE_STORAGE_CONTAINER", "review-files"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
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

// Location resolves Timezone, which decides where periods start and end.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c Config) FileStore() filestore.Config {
	return filestore.Config{
		Backend:          c.FileStoreBackend,
		Dir:              c.FileStoreDir,
		BaseURL:          c.FileStoreBaseURL,
		ConnectionString: c.AzureConnectionString,
		Container:        c.AzureContainer,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("REVIEW_TIMEZONE is invalid: %w", err)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxUploadBytes <= 0 || c.MaxUploadBytes > filestore.MaxUploadBytes {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be between 1 and %d", filestore.MaxUploadBytes)
	}
	if c.MaxBodyBytes < c.MaxUploadBytes {
		return fmt.Errorf("MAX_BODY_BYTES must not be smaller than MAX_UPLOAD_BYTES")
	}
	if c.AuditRetentionDays < 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must not be negative")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.ReviewWritesPerHour < 0 {
		return fmt.Errorf("REVIEW_WRITES_PER_HOUR must not be negative")
	}
	switch c.FileStoreBackend {
	case filestore.BackendLocal:
		if strings.TrimSpace(c.FileStoreDir) == "" {
			return fmt.Errorf("FILESTORE_DIR must be set for the local backend")
		}
	case filestore.BackendAzure:
		if strings.TrimSpace(c.AzureConnectionString) == "" {
			return fmt.Errorf("AZURE_STORAGE_CONNECTION_STRING must be set for the azure backend")
		}
	default:
		return fmt.Errorf("FILESTORE_BACKEND must be %q or %q", filestore.BackendLocal, filestore.BackendAzure)
	}
	return nil
}
