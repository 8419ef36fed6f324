package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// OKResponse acknowledges a write that has no other result.
type OKResponse struct {
	OK bool `json:"ok"`
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, world.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, world.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError reports err to the client. Internal errors are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		msg = "Internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}

func writeBadRequest(w http.ResponseWriter, logger *slog.Logger, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}
