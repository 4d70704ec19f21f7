package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/marketplace/backend/internal/apperrors"
	"github.com/marketplace/backend/internal/models"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for authentication business logic.
type AuthService interface {
	// Method Register validates the request, creates an unverified user and sends the verification email.
	//
	// "req" parameter contains username, email, password and an optional role (defaults to "user").
	//
	// Returns a validation error, a conflict error if the email is taken, or an internal error together with "nil" value.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.UserInfo, error)
	// Method VerifyEmail marks the owner of "verificationToken" verified.
	//
	// Fails if the token is missing, invalid, expired, superseded by a newer one, or its user no longer exists.
	VerifyEmail(ctx context.Context, verificationToken string) error
	// Method ResendVerification replaces the stored verification token of "email" and sends a new email.
	ResendVerification(ctx context.Context, email string) error
	// Method Login validates the credentials and returns an access token together with public user info.
	//
	// Returns a validation error with per-field messages, a not found error for unknown emails,
	// or an unauthorized error for a wrong password, together with "nil" value.
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	// Method ForgotPassword sends a password reset link to a registered "email".
	ForgotPassword(ctx context.Context, email string) error
	// Method ResetPassword sets "newPassword" for the user named by "resetToken".
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
	frontendURL string
}

// NewAuthHandler creates a new auth handler.
// "frontendURL" is the base the email verification endpoint redirects to.
func NewAuthHandler(authService AuthService, frontendURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{logger: logger},
		authService: authService,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// RegisterRoutes registers all auth handler routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/request", h.Request)
		r.Post("/register", h.Register)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/resend-verify-email", h.ResendVerification)
		r.Post("/login", h.Login)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
	})
}

// Request handles GET /api/auth/request
// @Summary Auth router probe
// @Tags auth
// @Produce json
// @Success 200 {object} Response
// @Router /api/auth/request [get]
func (h *AuthHandler) Request(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, "Request OK!", nil)
}

// Register handles POST /api/auth/register
// @Summary Register a new user
// @Description Creates an unverified account and emails a verification link valid for one day. Role defaults to "user".
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration request"
// @Success 201 {object} Response{data=models.UserInfo}
// @Failure 400 {object} Response "Missing or malformed fields"
// @Failure 409 {object} Response "Email already registered"
// @Failure 500 {object} Response
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, err, "failed to register user", errorMessages{
			apperrors.ErrConflict: "Email already registered",
		})
		return
	}

	h.respondJSON(w, http.StatusCreated, "User registered, check your email to verify the account", user)
}

// VerifyEmail handles GET /api/auth/verify-email
// @Summary Verify email address
// @Description Consumes the emailed verification token and redirects to the frontend success or error page.
// @Tags auth
// @Param verification_token query string true "Verification token"
// @Success 302 "Redirect to FRONTEND_URL/verify-email/success"
// @Failure 302 "Redirect to FRONTEND_URL/verify-email/error?reason=..."
// @Router /api/auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("verification_token")

	if err := h.authService.VerifyEmail(r.Context(), token); err != nil {
		reason := verificationFailureReason(err)
		if reason == "internal_error" {
			h.logger.Error("failed to verify email", zap.Error(err))
		} else {
			h.logger.Info("email verification rejected", zap.String("reason", reason))
		}
		target := h.frontendURL + "/verify-email/error?" + url.Values{"reason": {reason}}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	http.Redirect(w, r, h.frontendURL+"/verify-email/success", http.StatusFound)
}

// ResendVerification handles POST /api/auth/resend-verify-email
// @Summary Resend verification email
// @Description Issues a new verification token; previously sent links stop working.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.EmailRequest true "Email"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response "No user with this email"
// @Failure 409 {object} Response "Email already verified"
// @Failure 500 {object} Response
// @Router /api/auth/resend-verify-email [post]
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ResendVerification(r.Context(), req.Email); err != nil {
		h.respondServiceError(w, err, "failed to resend verification email", errorMessages{
			apperrors.ErrNotFound: "There is no user with this email",
			apperrors.ErrConflict: "Email already verified",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, "Verification email sent", nil)
}

// Login handles POST /api/auth/login
// @Summary Login user
// @Description Authenticates with email and password and returns an access token. The optional role field is ignored.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 200 {object} Response{data=models.LoginResponse}
// @Failure 400 {object} Response "Per-field validation errors"
// @Failure 401 {object} Response "Wrong password"
// @Failure 404 {object} Response "No user with this email"
// @Failure 500 {object} Response
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, err, "failed to login user", errorMessages{
			apperrors.ErrNotFound:     "There is no user with this email",
			apperrors.ErrUnauthorized: "Wrong password",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, "Logged in", resp)
}

// ForgotPassword handles POST /api/auth/forgot-password
// @Summary Request a password reset
// @Description Emails a reset link valid for one day.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.EmailRequest true "Email"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response "No user with this email"
// @Failure 500 {object} Response
// @Router /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		h.respondServiceError(w, err, "failed to start password reset", errorMessages{
			apperrors.ErrNotFound: "There is no user with this email",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, "Password reset email sent", nil)
}

// ResetPassword handles POST /api/auth/reset-password
// @Summary Reset password
// @Description Sets a new password using the emailed reset token. Existing access tokens stay valid until they expire.
// @Tags auth
// @Accept json
// @Produce json
// @Param reset_token query string true "Reset token"
// @Param request body models.ResetPasswordRequest true "New password"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response "Invalid or expired reset token"
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	resetToken := r.URL.Query().Get("reset_token")
	if err := h.authService.ResetPassword(r.Context(), resetToken, req.Password); err != nil {
		h.respondServiceError(w, err, "failed to reset password", errorMessages{
			apperrors.ErrInvalidToken: "Invalid or expired reset token",
			apperrors.ErrNotFound:     "There is no user with this email",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, "Password updated", nil)
}

// verificationFailureReason is the reason code passed to the frontend error page
func verificationFailureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return "missing_token"
	case errors.Is(err, apperrors.ErrTokenSuperseded):
		return "token_superseded"
	case errors.Is(err, apperrors.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, apperrors.ErrNotFound):
		return "user_not_found"
	default:
		return "internal_error"
	}
}
