package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/fjstoneservices/site-api/internal/config"
	"github.com/fjstoneservices/site-api/internal/ratelimit"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// RateLimiting holds the quote intake limiter, the download-link limiter
// and any in-process stores that need sweeping when Redis is not used.
type RateLimiting struct {
	Quotes   *ratelimit.Limiter
	Download *ratelimit.Limiter
	Memory   []*ratelimit.MemoryStore
	Backend  string
}

// downloadLimit bounds guesses against /files/{token} per client.
var downloadLimit = ratelimit.Config{Max: 60, Window: time.Minute, UnknownMultiplier: 10}

// BuildRateLimiter picks the counter store named by RATE_LIMIT_BACKEND.
// A redis backend without a reachable client is an error, never a fallback
// to per-process counters.
func BuildRateLimiter(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (*RateLimiting, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	quoteLimit := ratelimit.Config{
		Max:               cfg.QuoteRateLimitMax,
		Window:            cfg.QuoteRateLimitWindow,
		UnknownMultiplier: cfg.RateLimitUnknownMultiplier,
	}

	switch cfg.RateLimitBackend {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: redis rate limit backend selected but redis is unavailable")
		}
		return &RateLimiting{
			Quotes:   ratelimit.NewLimiter(ratelimit.NewRedisStore(redisClient, ratelimit.DefaultRedisPrefix), quoteLimit, logger),
			Download: ratelimit.NewLimiter(ratelimit.NewRedisStore(redisClient, "rl:download:"), downloadLimit, logger),
			Backend:  "redis",
		}, nil
	case "", "memory":
		quoteStore := ratelimit.NewMemoryStore()
		downloadStore := ratelimit.NewMemoryStore()
		return &RateLimiting{
			Quotes:   ratelimit.NewLimiter(quoteStore, quoteLimit, logger),
			Download: ratelimit.NewLimiter(downloadStore, downloadLimit, logger),
			Memory:   []*ratelimit.MemoryStore{quoteStore, downloadStore},
			Backend:  "memory",
		}, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown rate limit backend %q", cfg.RateLimitBackend)
	}
}
