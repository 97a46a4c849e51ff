package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/threeeaglesforge/leadverify/internal/config"
	"github.com/threeeaglesforge/leadverify/internal/httputil"
)

// Limiter names used by the router.
const (
	LimiterIntake = "intake"
	LimiterRedeem = "redeem"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", httputil.ClientIP(r),
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return passthrough
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimiterIntake: noOp,
			LimiterRedeem: noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		LimiterIntake: RateLimit(RateLimitConfig{
			Requests: cfg.IntakeRequestsPerWindow,
			Window:   time.Duration(cfg.IntakeWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		LimiterRedeem: RateLimit(RateLimitConfig{
			Requests: cfg.RedeemRequestsPerWindow,
			Window:   time.Duration(cfg.RedeemWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
	}
}
