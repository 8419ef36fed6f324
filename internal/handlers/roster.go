package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwebster45206/fractured-truths/internal/pipeline"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// DefaultHistoryLimit applies when /history has no limit parameter.
const DefaultHistoryLimit = 50

type PlayersResponse struct {
	Players []world.Player `json:"players"`
}

type HistoryResponse struct {
	Events []world.GameEvent `json:"events"`
}

type PlayersHandler struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func NewPlayersHandler(p *pipeline.Pipeline, logger *slog.Logger) *PlayersHandler {
	return &PlayersHandler{pipeline: p, logger: logger}
}

// ServeHTTP handles GET /players
func (h *PlayersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	players, err := h.pipeline.Players(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if players == nil {
		players = []world.Player{}
	}
	writeJSON(w, h.logger, http.StatusOK, PlayersResponse{Players: players})
}

type HistoryHandler struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func NewHistoryHandler(p *pipeline.Pipeline, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{pipeline: p, logger: logger}
}

// ServeHTTP handles GET /history?limit=N. Events are returned oldest first.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, h.logger, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.pipeline.History(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if events == nil {
		events = []world.GameEvent{}
	}
	writeJSON(w, h.logger, http.StatusOK, HistoryResponse{Events: events})
}
