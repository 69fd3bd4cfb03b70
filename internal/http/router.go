package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/stay-concierge/internal/config"
	"github.com/tendant/stay-concierge/internal/http/features/catalog"
	"github.com/tendant/stay-concierge/internal/http/features/events"
	"github.com/tendant/stay-concierge/internal/http/middleware"
	"github.com/tendant/stay-concierge/internal/httputil"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	Dispatcher      events.Dispatcher
	Auth            *middleware.WebhookAuth
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	limiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	// The IP limiter runs before auth so unauthenticated floods are shed cheaply.
	eventsHandler := events.NewHandler(cfg.Logger, cfg.Dispatcher, limiters.User)
	eventsHandler.RegisterRoutes(r, limiters.IP, cfg.Auth.Middleware)

	catalog.NewHandler().RegisterRoutes(r, cfg.Auth.Middleware)

	return r
}
