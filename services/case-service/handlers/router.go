package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"resolveit/pkg/middleware"
	"resolveit/pkg/response"
	"resolveit/pkg/storage"
	"resolveit/services/case-service/service"
)

// Config carries everything the router needs. Policy defaults to a
// TokenPolicy over Auth; Limiter may be nil to disable throttling.
type Config struct {
	Auth       *service.Authenticator
	Cases      *service.Cases
	Policy     middleware.AccessPolicy
	Files      storage.Store
	Limiter    *middleware.RateLimiter
	CORSOrigin string
	// Health reports whether the document store is reachable.
	Health func(ctx context.Context) error
}

type Handler struct {
	auth   *service.Authenticator
	cases  *service.Cases
	health func(ctx context.Context) error
}

// NewRouter builds the HTTP surface: the API under /api, stored files under
// /uploads, plus /health and /metrics.
func NewRouter(cfg Config) http.Handler {
	h := &Handler{auth: cfg.Auth, cases: cfg.Cases, health: cfg.Health}

	policy := cfg.Policy
	if policy == nil {
		policy = middleware.NewTokenPolicy(NewVerifier(cfg.Auth))
	}
	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}

	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggerMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(origin))

	r.Get("/health", h.healthCheck)
	r.Method(http.MethodGet, "/metrics", middleware.GetMetricsHandler())
	if cfg.Files != nil {
		r.Handle(storage.URLPrefix+"*", http.StripPrefix(storage.URLPrefix, storage.Handler(cfg.Files)))
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(cfg.Limiter.Middleware)
			}
			r.Post("/register", h.register)
			r.Post("/login", h.login)
		})

		r.With(policy.RequireAuthenticated).Post("/case/register", h.registerCase)
		r.With(policy.RequireAuthenticated).Post("/cases/user", h.listMine)

		r.Group(func(r chi.Router) {
			r.Use(policy.RequireAdmin)
			r.Post("/case/update/verified", h.setVerification)
			r.Post("/case/update/opposite", h.setOppositeStatus)
			r.Post("/case/update/status", h.setCaseStatus)
			r.Get("/cases/all", h.listAll)
		})
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			middleware.LogError(r.Context(), "health check failed", err)
			response.JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "case-service",
			})
			return
		}
	}
	response.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "case-service",
	})
}
