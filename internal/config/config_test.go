package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("EMAIL_TO", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.QuoteRateLimitMax != 5 || cfg.QuoteRateLimitWindow != time.Minute {
		t.Fatalf("expected 5 per minute default, got %d per %s", cfg.QuoteRateLimitMax, cfg.QuoteRateLimitWindow)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Fatalf("expected 10MiB default upload cap, got %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxUploadFiles != 5 {
		t.Fatalf("expected 5 files default, got %d", cfg.MaxUploadFiles)
	}
	if cfg.SignedURLTTL != 24*time.Hour {
		t.Fatalf("expected 24h signed url ttl, got %s", cfg.SignedURLTTL)
	}
	if cfg.QuoteUploadsBucket != "quote-uploads" {
		t.Fatalf("unexpected bucket %s", cfg.QuoteUploadsBucket)
	}
	if len(cfg.EmailTo) != 1 {
		t.Fatalf("expected default recipient, got %v", cfg.EmailTo)
	}
	if cfg.BusinessTimezone != "America/Chicago" {
		t.Fatalf("unexpected timezone %s", cfg.BusinessTimezone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("PUBLIC_BASE_URL", "https://example.com/")
	t.Setenv("DATABASE_URL", "postgres://service@host/db")
	t.Setenv("DATABASE_READER_URL", "postgres://reader@host/db")
	t.Setenv("QUOTE_RATE_LIMIT_MAX", "3")
	t.Setenv("QUOTE_RATE_LIMIT_WINDOW", "2m")
	t.Setenv("MAX_UPLOAD_BYTES", "5242880")
	t.Setenv("EMAIL_TO", "a@example.com, ,b@example.com")
	t.Setenv("ADMIN_EMAILS", "owner@example.com")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
	if cfg.PublicBaseURL != "https://example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.PublicBaseURL)
	}
	if cfg.DatabaseReaderURL != "postgres://reader@host/db" {
		t.Fatalf("expected reader url override, got %s", cfg.DatabaseReaderURL)
	}
	if cfg.QuoteRateLimitMax != 3 || cfg.QuoteRateLimitWindow != 2*time.Minute {
		t.Fatalf("unexpected rate limit %d/%s", cfg.QuoteRateLimitMax, cfg.QuoteRateLimitWindow)
	}
	if cfg.MaxUploadBytes != 5*1024*1024 {
		t.Fatalf("expected 5MiB, got %d", cfg.MaxUploadBytes)
	}
	if len(cfg.EmailTo) != 2 || cfg.EmailTo[1] != "b@example.com" {
		t.Fatalf("unexpected recipients %v", cfg.EmailTo)
	}
	if len(cfg.AdminEmails) != 1 {
		t.Fatalf("unexpected admin emails %v", cfg.AdminEmails)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		t.Setenv("STORAGE_BACKEND", "s3")
		t.Setenv("RATE_LIMIT_BACKEND", "memory")
		return Load()
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid default s3 config, got %v", err)
	}

	cfg = base()
	cfg.PortfolioBucket = cfg.QuoteUploadsBucket
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "PORTFOLIO_BUCKET") {
		t.Fatalf("expected public bucket collision error, got %v", err)
	}

	cfg = base()
	cfg.StorageBackend = "local"
	cfg.StorageSigningSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing signing secret error")
	}

	cfg = base()
	cfg.RateLimitBackend = "redis"
	cfg.RedisAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected redis addr error")
	}

	cfg = base()
	cfg.EmailProvider = "log"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected log email provider allowed outside production, got %v", err)
	}
	cfg.Env = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected log email provider rejected in production")
	}

	cfg = base()
	cfg.Env = "production"
	cfg.StorageBackend = "memory"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected memory storage rejected in production")
	}
}
