package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marketplace/backend/internal/apperrors"
	"go.uber.org/zap"
)

// Response is the JSON envelope returned by every endpoint
type Response struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	OK      bool              `json:"ok"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// errorMessages overrides the client message for specific error kinds
type errorMessages map[error]string

var defaultErrorMessages = []struct {
	kind    error
	message string
}{
	{apperrors.ErrConflict, "Resource already exists"},
	{apperrors.ErrNotFound, "Resource not found"},
	{apperrors.ErrUnauthorized, "Unauthorized"},
	{apperrors.ErrInvalidToken, "Invalid or expired token"},
	{apperrors.ErrForbidden, "Forbidden"},
}

type BaseHandler struct {
	logger *zap.Logger
}

// respondJSON sends a successful envelope
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, message string, data any) {
	h.writeEnvelope(w, Response{
		Status:  status,
		Message: message,
		OK:      status < http.StatusBadRequest,
		Data:    data,
	})
}

// respondError sends an error envelope
func (h *BaseHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.writeEnvelope(w, Response{Status: status, Message: message})
}

// respondServiceError maps a service error to its status and client message.
// Internal errors are logged under action and never leak their text.
func (h *BaseHandler) respondServiceError(w http.ResponseWriter, err error, action string, messages errorMessages) {
	status := apperrors.HTTPStatus(err)

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		h.writeEnvelope(w, Response{
			Status:  status,
			Message: "Errors exist!",
			Errors:  validationErr.Fields,
		})
		return
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(action, zap.Error(err))
		h.respondError(w, status, "Internal Server Error")
		return
	}

	h.logger.Debug(action, zap.Error(err), zap.Int("status", status))
	h.respondError(w, status, clientMessage(err, messages))
}

// decodeJSON decodes the request body into dst, answering 400 on malformed input
func (h *BaseHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *BaseHandler) writeEnvelope(w http.ResponseWriter, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

func clientMessage(err error, messages errorMessages) string {
	for kind, message := range messages {
		if errors.Is(err, kind) {
			return message
		}
	}
	for _, fallback := range defaultErrorMessages {
		if errors.Is(err, fallback.kind) {
			return fallback.message
		}
	}
	return "Request failed"
}
