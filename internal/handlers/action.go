package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/fractured-truths/internal/pipeline"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

type ActionRequest struct {
	PlayerID string         `json:"playerId"`
	Type     string         `json:"type"`
	Payload  world.Document `json:"payload,omitempty"`
}

type ActionHandler struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func NewActionHandler(p *pipeline.Pipeline, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{
		pipeline: p,
		logger:   logger,
	}
}

// ServeHTTP handles POST /action. The response is sent once the action has
// been fully propagated.
func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid action request body", "error", err)
		writeBadRequest(w, h.logger, "Invalid request body")
		return
	}

	if err := h.pipeline.HandleAction(r.Context(), req.PlayerID, req.Type, req.Payload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, OKResponse{OK: true})
}
