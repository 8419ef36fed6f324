package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/fractured-truths/internal/pipeline"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

type ViewResponse struct {
	PlayerID    string         `json:"playerId"`
	DisplayName string         `json:"displayName"`
	View        world.Document `json:"view"`
}

type ViewHandler struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func NewViewHandler(p *pipeline.Pipeline, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{
		pipeline: p,
		logger:   logger,
	}
}

// ServeHTTP handles GET /view/{playerId}
func (h *ViewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	player, view, err := h.pipeline.View(r.Context(), r.PathValue("playerId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ViewResponse{
		PlayerID:    player.ID,
		DisplayName: player.DisplayName,
		View:        view.View,
	})
}
