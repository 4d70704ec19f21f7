// Package middleware authenticates requests with bearer access tokens and enforces role allow-lists
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/go-chi/jwtauth/v5"
	"github.com/marketplace/backend/internal/auth/service"
	"github.com/marketplace/backend/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// AccessTokenValidator verifies session tokens
type AccessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*service.Payload, error)
}

// Identity is the authenticated caller attached to the request context
type Identity struct {
	UserID   int         `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

// RequireRoles validates the bearer access token and admits only callers whose role is in roles.
// The allow-list is copied, so later changes to the caller's slice have no effect.
func RequireRoles(validator AccessTokenValidator, roles ...models.Role) func(http.Handler) http.Handler {
	allowed := slices.Clone(roles)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				writeError(w, http.StatusUnauthorized, "Authorization token is missing")
				return
			}

			// Expected format: "Bearer <token>"
			token := jwtauth.TokenFromHeader(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Authorization token is malformed")
				return
			}

			payload, err := validator.ValidateAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			role := models.Role(payload.Role)
			if !slices.Contains(allowed, role) {
				writeError(w, http.StatusForbidden, "You do not have permission for this operation")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				UserID:   payload.UserID,
				Username: payload.Username,
				Email:    payload.Email,
				Role:     role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the authenticated identity from context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// errorBody mirrors the handlers' response envelope for rejected requests
type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	OK      bool   `json:"ok"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Status: status, Message: message})
}
