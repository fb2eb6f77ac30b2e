package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the appropriate error response based on error type.
// Provider error detail never reaches the response: it was already logged by
// the client, and everything unrecognized collapses to a generic message.
func HandleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	switch {
	case errors.Is(err, s3fm.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "File not found")
	case errors.Is(err, s3fm.ErrAuthRequired):
		WriteError(w, http.StatusUnauthorized, "auth_required", "Authentication required")
	case errors.Is(err, s3fm.ErrInvalidKey):
		WriteError(w, http.StatusBadRequest, "invalid_key", "Invalid object key")
	case errors.Is(err, s3fm.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, "not_configured", "Storage is not configured")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
