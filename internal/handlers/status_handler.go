package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marketplace/backend/internal/auth/middleware"
	"github.com/marketplace/backend/internal/models"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 3 * time.Second

// StatusHandler serves liveness and dependency health endpoints
type StatusHandler struct {
	BaseHandler
	validator middleware.AccessTokenValidator
	checks    map[string]HealthCheck
}

// NewStatusHandler creates a status handler running the given named checks on /health
func NewStatusHandler(validator middleware.AccessTokenValidator, checks map[string]HealthCheck, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		BaseHandler: BaseHandler{logger: logger},
		validator:   validator,
		checks:      checks,
	}
}

// RegisterRoutes registers all status handler routes
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/status", func(r chi.Router) {
		r.Get("/ping", h.Ping)
		r.With(middleware.RequireRoles(h.validator, models.RoleUser, models.RoleAdmin)).Post("/ping", h.AuthenticatedPing)
		r.Get("/health", h.Health)
	})
}

// Ping handles GET /api/status/ping
// @Summary Ping
// @Tags status
// @Produce json
// @Success 200 {object} Response
// @Router /api/status/ping [get]
func (h *StatusHandler) Ping(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, "Request OK!", nil)
}

// AuthenticatedPing handles POST /api/status/ping
// @Summary Authenticated ping
// @Description Echoes the identity carried by the access token
// @Tags status
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=map[string]middleware.Identity}
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Router /api/status/ping [post]
func (h *StatusHandler) AuthenticatedPing(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	h.respondJSON(w, http.StatusOK, "Pong", map[string]any{"user": identity})
}

// Health handles GET /api/status/health
// @Summary Dependency health
// @Tags status
// @Produce json
// @Success 200 {object} Response{data=map[string]string}
// @Failure 503 {object} Response{data=map[string]string}
// @Router /api/status/health [get]
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	message := "OK"
	if status != http.StatusOK {
		message = "Service Unavailable"
	}
	h.respondJSON(w, status, message, results)
}
