package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// DatabaseURL carries the service-level credential used for anonymous
	// quote inserts. DatabaseReaderURL is the low-privilege staff credential.
	DatabaseURL       string
	DatabaseReaderURL string
	DBTimeout         time.Duration

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Quote intake rate limiting
	RateLimitBackend           string
	QuoteRateLimitMax          int
	QuoteRateLimitWindow       time.Duration
	RateLimitUnknownMultiplier int

	// Object storage
	StorageBackend       string
	QuoteUploadsBucket   string
	PortfolioBucket      string
	LocalStorageDir      string
	StorageSigningSecret string
	SignedURLTTL         time.Duration
	StaffSignedURLTTL    time.Duration
	StorageTimeout       time.Duration
	MaxUploadFiles       int
	MaxUploadBytes       int64

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Email
	EmailProvider    string
	SendGridAPIKey   string
	EmailFrom        string
	EmailFromName    string
	EmailTo          []string
	EmailTimeout     time.Duration
	BusinessName     string
	BusinessTimezone string

	AdminJWTSecret     string
	AdminEmails        []string
	CORSAllowedOrigins []string
	// TrustedProxyHeader names the header carrying the client address
	// as appended by the edge proxy.
	TrustedProxyHeader string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DatabaseReaderURL: getEnv("DATABASE_READER_URL", ""),
		DBTimeout:         getEnvAsDuration("DB_TIMEOUT", 5*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		RateLimitBackend:           strings.ToLower(strings.TrimSpace(getEnv("RATE_LIMIT_BACKEND", "memory"))),
		QuoteRateLimitMax:          getEnvAsInt("QUOTE_RATE_LIMIT_MAX", 5),
		QuoteRateLimitWindow:       getEnvAsDuration("QUOTE_RATE_LIMIT_WINDOW", time.Minute),
		RateLimitUnknownMultiplier: getEnvAsInt("RATE_LIMIT_UNKNOWN_MULTIPLIER", 10),

		StorageBackend:       strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", "local"))),
		QuoteUploadsBucket:   getEnv("QUOTE_UPLOADS_BUCKET", "quote-uploads"),
		PortfolioBucket:      getEnv("PORTFOLIO_BUCKET", "portfolio"),
		LocalStorageDir:      getEnv("LOCAL_STORAGE_DIR", "./data/quote-uploads"),
		StorageSigningSecret: getEnv("STORAGE_SIGNING_SECRET", ""),
		SignedURLTTL:         getEnvAsDuration("SIGNED_URL_TTL", 24*time.Hour),
		StaffSignedURLTTL:    getEnvAsDuration("STAFF_SIGNED_URL_TTL", time.Hour),
		StorageTimeout:       getEnvAsDuration("STORAGE_TIMEOUT", 15*time.Second),
		MaxUploadFiles:       getEnvAsInt("MAX_UPLOAD_FILES", 5),
		MaxUploadBytes:       getEnvAsInt64("MAX_UPLOAD_BYTES", 10*1024*1024),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:        getEnv("EMAIL_FROM", "quotes@fjstoneservices.com"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "F&J's Stone Services"),
		EmailTo:          getEnvAsList("EMAIL_TO", []string{"fjstoneservices@gmail.com"}),
		EmailTimeout:     getEnvAsDuration("EMAIL_TIMEOUT", 10*time.Second),
		BusinessName:     getEnv("BUSINESS_NAME", "F&J's Stone Services"),
		BusinessTimezone: getEnv("BUSINESS_TIMEZONE", "America/Chicago"),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		AdminEmails:        getEnvAsList("ADMIN_EMAILS", nil),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		TrustedProxyHeader: getEnv("TRUSTED_PROXY_HEADER", "X-Forwarded-For"),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate rejects configurations that would break the upload security
// contract or leave the pipeline without a mandatory collaborator.
func (c *Config) Validate() error {
	var errs []error
	if c.QuoteRateLimitMax <= 0 {
		errs = append(errs, errors.New("QUOTE_RATE_LIMIT_MAX must be positive"))
	}
	if c.QuoteRateLimitWindow <= 0 {
		errs = append(errs, errors.New("QUOTE_RATE_LIMIT_WINDOW must be positive"))
	}
	if c.MaxUploadFiles <= 0 || c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("upload limits must be positive"))
	}
	switch c.RateLimitBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis rate limit backend"))
		}
	default:
		errs = append(errs, errors.New("RATE_LIMIT_BACKEND must be memory or redis"))
	}
	switch c.StorageBackend {
	case "s3":
		if strings.TrimSpace(c.QuoteUploadsBucket) == "" {
			errs = append(errs, errors.New("QUOTE_UPLOADS_BUCKET is required"))
		}
		if c.QuoteUploadsBucket == c.PortfolioBucket {
			errs = append(errs, errors.New("QUOTE_UPLOADS_BUCKET must differ from the public PORTFOLIO_BUCKET"))
		}
	case "local":
		if strings.TrimSpace(c.StorageSigningSecret) == "" {
			errs = append(errs, errors.New("STORAGE_SIGNING_SECRET is required for local storage"))
		}
	case "memory":
		if c.IsProduction() {
			errs = append(errs, errors.New("memory storage is not allowed in production"))
		}
	default:
		errs = append(errs, errors.New("STORAGE_BACKEND must be s3, local or memory"))
	}
	switch c.EmailProvider {
	case "sendgrid", "ses":
	case "log":
		if c.IsProduction() {
			errs = append(errs, errors.New("log email provider is not allowed in production"))
		}
	default:
		errs = append(errs, errors.New("EMAIL_PROVIDER must be sendgrid, ses or log"))
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
