package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/marketplace/backend/internal/auth/middleware"
	"github.com/marketplace/backend/internal/auth/service"
	"github.com/marketplace/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupStatusRouter(tg *service.TokenGenerator, checks map[string]HealthCheck) chi.Router {
	r := chi.NewRouter()
	NewStatusHandler(tg, checks, zap.NewNop()).RegisterRoutes(r)
	return r
}

func TestStatusHandler_Ping(t *testing.T) {
	w := doRequest(t, setupStatusRouter(newTestTokenGenerator(), nil), http.MethodGet, "/api/status/ping", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Request OK!", decodeEnvelope(t, w).Message)
}

func TestStatusHandler_AuthenticatedPing(t *testing.T) {
	tg := newTestTokenGenerator()
	router := setupStatusRouter(tg, nil)

	t.Run("without token", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/status/ping", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("with token", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/status/ping", nil, bearer(t, tg, 3, models.RoleUser))
		require.Equal(t, http.StatusOK, w.Code)

		env := decodeEnvelope(t, w)
		assert.Equal(t, "Pong", env.Message)

		var data struct {
			User middleware.Identity `json:"user"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, 3, data.User.UserID)
		assert.Equal(t, models.RoleUser, data.User.Role)
	})
}

func TestStatusHandler_Health(t *testing.T) {
	up := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name           string
		checks         map[string]HealthCheck
		expectedStatus int
		expected       map[string]string
	}{
		{
			name:           "all up",
			checks:         map[string]HealthCheck{"mysql": up, "redis": up},
			expectedStatus: http.StatusOK,
			expected:       map[string]string{"mysql": "up", "redis": "up"},
		},
		{
			name:           "one down",
			checks:         map[string]HealthCheck{"mysql": up, "mongo": down},
			expectedStatus: http.StatusServiceUnavailable,
			expected:       map[string]string{"mysql": "up", "mongo": "down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, setupStatusRouter(newTestTokenGenerator(), tt.checks), http.MethodGet, "/api/status/health", nil, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			env := decodeEnvelope(t, w)
			var results map[string]string
			require.NoError(t, json.Unmarshal(env.Data, &results))
			assert.Equal(t, tt.expected, results)
		})
	}
}
