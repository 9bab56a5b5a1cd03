package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/kpireview",
		Environment:        "development",
		Timezone:           "UTC",
		MaxBodyBytes:       11 << 20,
		MaxUploadBytes:     10 << 20,
		RateLimitPerMinute: 60,
		FileStoreBackend:   "local",
		FileStoreDir:       "storage/files",
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"prod secret", func(c *Config) { c.Environment = "production" }, "JWT_SECRET"},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "REVIEW_TIMEZONE"},
		{"upload cap", func(c *Config) { c.MaxUploadBytes = 20 << 20 }, "MAX_UPLOAD_BYTES"},
		{"body vs upload", func(c *Config) { c.MaxBodyBytes = 2048 }, "MAX_BODY_BYTES"},
		{"backend", func(c *Config) { c.FileStoreBackend = "s3" }, "FILESTORE_BACKEND"},
		{"azure", func(c *Config) { c.FileStoreBackend = "azure" }, "AZURE_STORAGE_CONNECTION_STRING"},
		{"review writes", func(c *Config) { c.ReviewWritesPerHour = -1 }, "REVIEW_WRITES_PER_HOUR"},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %s, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/test")
	t.Setenv("REVIEW_TIMEZONE", "Europe/London")
	t.Setenv("REFRESH_INTERVAL", "90s")
	t.Setenv("RUN_SEED", "false")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	if cfg.DatabaseURL != "postgres://db/test" || cfg.Timezone != "Europe/London" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RefreshInterval != 90*time.Second || cfg.RunSeed {
		t.Fatalf("unexpected parsed values %+v", cfg)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Fatalf("expected fallback for bad int, got %d", cfg.RateLimitPerMinute)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/London" {
		t.Fatalf("unexpected location %v %v", loc, err)
	}
}
