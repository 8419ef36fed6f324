package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type HealthResponse struct {
	OK         bool              `json:"ok"`
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// Pinger is satisfied by the storage backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage  Pinger
	provider string
	logger   *slog.Logger
}

// NewHealthHandler reports storage health along with the configured
// generation provider name.
func NewHealthHandler(storage Pinger, provider string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage:  storage,
		provider: provider,
		logger:   logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]string{"llm": h.provider}
	overallStatus := "healthy"

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}

	response := HealthResponse{
		OK:         overallStatus == "healthy",
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "fractured-truths",
		Components: components,
	}

	statusCode := http.StatusOK
	if !response.OK {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, response)
}
