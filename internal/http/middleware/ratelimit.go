package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/tendant/stay-concierge/internal/config"
	"github.com/tendant/stay-concierge/internal/httputil"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

func limitHandler(logger *slog.Logger) httprate.Option {
	return httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
		if logger != nil {
			logger.Warn("rate limit exceeded",
				"ip", r.RemoteAddr,
				"path", r.URL.Path,
				"method", r.Method,
				"user_agent", r.UserAgent(),
			)
		}
		httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
	})
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		limitHandler(cfg.Logger),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// KeyLimiter limits requests by a key only known once the body is decoded,
// such as the channel user an event belongs to.
type KeyLimiter interface {
	// Limit reports whether the request was rejected; it has then written the response.
	Limit(w http.ResponseWriter, r *http.Request, key string) bool
}

type keyLimiter struct {
	rl *httprate.RateLimiter
}

func (l keyLimiter) Limit(w http.ResponseWriter, r *http.Request, key string) bool {
	return l.rl.RespondOnLimit(w, r, key)
}

type noKeyLimit struct{}

func (noKeyLimit) Limit(http.ResponseWriter, *http.Request, string) bool { return false }

// NewKeyLimiter creates a limiter allowing cfg.Requests per cfg.Window for each key.
func NewKeyLimiter(cfg RateLimitConfig) KeyLimiter {
	return keyLimiter{rl: httprate.NewRateLimiter(cfg.Requests, cfg.Window, limitHandler(cfg.Logger))}
}

// Limiters groups the webhook's rate limiting middleware.
type Limiters struct {
	IP   func(http.Handler) http.Handler
	User KeyLimiter
}

// CreateRateLimiters creates rate limiting middleware based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) Limiters {
	if !cfg.Enabled {
		return Limiters{IP: NoRateLimit(), User: noKeyLimit{}}
	}

	return Limiters{
		IP: RateLimit(RateLimitConfig{
			Requests: cfg.IPRequestsPerMinute,
			Window:   time.Minute,
			Logger:   logger,
		}),
		User: NewKeyLimiter(RateLimitConfig{
			Requests: cfg.UserRequestsPerMinute,
			Window:   time.Minute,
			Logger:   logger,
		}),
	}
}
