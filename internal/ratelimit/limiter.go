package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

// UnknownKey is the shared bucket for requests without a client address.
// Its allowance is Max * UnknownMultiplier.
const UnknownKey = "unknown"

// Config controls the default limiter policy.
type Config struct {
	Max               int
	Window            time.Duration
	UnknownMultiplier int
}

// DefaultConfig is 5 requests per minute per client.
func DefaultConfig() Config {
	return Config{Max: 5, Window: time.Minute, UnknownMultiplier: 10}
}

// Limiter applies a fixed-window policy on top of a Store.
type Limiter struct {
	store  Store
	cfg    Config
	logger *logging.Logger
}

// NewLimiter wires a limiter; a nil store falls back to process memory.
func NewLimiter(store Store, cfg Config, logger *logging.Logger) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = logging.Default()
	}
	def := DefaultConfig()
	if cfg.Max <= 0 {
		cfg.Max = def.Max
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.UnknownMultiplier <= 0 {
		cfg.UnknownMultiplier = 1
	}
	return &Limiter{store: store, cfg: cfg, logger: logger}
}

// Check counts one request for key and reports whether it fits in
// maxRequests for the current window.
func (l *Limiter) Check(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, error) {
	if key == "" {
		key = UnknownKey
	}
	limit := int64(maxRequests)
	if key == UnknownKey {
		limit *= int64(l.cfg.UnknownMultiplier)
	}
	count, _, err := l.store.Increment(ctx, key, window)
	if err != nil {
		return false, err
	}
	return count <= limit, nil
}

// Allow applies the configured policy. Store failures fail open.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	allowed, err := l.Check(ctx, key, l.cfg.Max, l.cfg.Window)
	if err != nil {
		l.logger.Error("rate limit check failed", "error", err, "key", key)
		return true
	}
	if !allowed {
		l.logger.Warn("rate limit exceeded", "key", key)
	}
	return allowed
}

// ClientKey derives the limiter key from X-Forwarded-For.
func ClientKey(r *http.Request) string {
	return KeyFromHeader("X-Forwarded-For")(r)
}

// KeyFromHeader returns a key function reading the first comma separated
// value of header, or UnknownKey when it is missing.
func KeyFromHeader(header string) func(*http.Request) string {
	if header == "" {
		header = "X-Forwarded-For"
	}
	return func(r *http.Request) string {
		raw := r.Header.Get(header)
		if raw == "" {
			return UnknownKey
		}
		first, _, _ := strings.Cut(raw, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
		return UnknownKey
	}
}
