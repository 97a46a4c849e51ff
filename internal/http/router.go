package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/threeeaglesforge/leadverify/internal/config"
	"github.com/threeeaglesforge/leadverify/internal/http/features/common"
	"github.com/threeeaglesforge/leadverify/internal/http/features/contact"
	"github.com/threeeaglesforge/leadverify/internal/http/features/newsletter"
	"github.com/threeeaglesforge/leadverify/internal/http/middleware"
	"github.com/threeeaglesforge/leadverify/internal/httputil"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger *slog.Logger
	// TrustProxyHeaders rewrites RemoteAddr from X-Forwarded-For, X-Real-IP or True-Client-IP.
	TrustProxyHeaders bool

	Submitter common.Submitter
	Redeemer  common.Redeemer
	// Metrics serves /metrics when set.
	Metrics http.Handler

	SiteURL                string
	ContactConfirmedURL    string
	NewsletterConfirmedURL string

	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.RequestID)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
	intake, redeem := rateLimiters[middleware.LimiterIntake], rateLimiters[middleware.LimiterRedeem]

	contact.NewHandler(
		cfg.Logger,
		cfg.Submitter,
		cfg.Redeemer,
		cfg.SiteURL,
		cfg.ContactConfirmedURL,
	).Routes(r, intake, redeem)

	newsletter.NewHandler(
		cfg.Logger,
		cfg.Submitter,
		cfg.Redeemer,
		cfg.SiteURL,
		cfg.NewsletterConfirmedURL,
	).Routes(r, intake, redeem)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusNotFound, "Not found.")
	})

	return r
}
