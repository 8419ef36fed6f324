package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/fractured-truths/internal/pipeline"
)

type JoinRequest struct {
	DisplayName string `json:"displayName"`
	Alignment   string `json:"alignment,omitempty"`
}

type JoinResponse struct {
	PlayerID string `json:"playerId"`
}

type JoinHandler struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func NewJoinHandler(p *pipeline.Pipeline, logger *slog.Logger) *JoinHandler {
	return &JoinHandler{
		pipeline: p,
		logger:   logger,
	}
}

// ServeHTTP handles POST /join
func (h *JoinHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid join request body", "error", err)
		writeBadRequest(w, h.logger, "Invalid request body")
		return
	}

	player, err := h.pipeline.Join(r.Context(), req.DisplayName, req.Alignment)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, JoinResponse{PlayerID: player.ID})
}
