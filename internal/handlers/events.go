package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/fractured-truths/internal/realtime"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// KeepaliveInterval spaces the SSE comment lines that hold idle streams open.
const KeepaliveInterval = 30 * time.Second

// EventsHandler streams realtime frames as Server-Sent Events.
type EventsHandler struct {
	hub       *realtime.Hub
	keepalive time.Duration
	logger    *slog.Logger
}

func NewEventsHandler(hub *realtime.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		hub:       hub,
		keepalive: KeepaliveInterval,
		logger:    logger,
	}
}

// ServeHTTP handles GET /events?playerId=...
// The SSE event name is the frame type.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, h.logger, http.StatusInternalServerError, ErrorResponse{Error: "Streaming unsupported"})
		return
	}
	playerID := r.URL.Query().Get("playerId")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	outbox := realtime.NewOutbox(realtime.DefaultOutboxSize)
	unregister := h.hub.Register(playerID, outbox)
	defer unregister()

	h.logger.Info("SSE connection established",
		"player_id", playerID,
		"remote_addr", r.RemoteAddr)

	if err := h.sendSSE(w, world.Message{Type: world.MessageHello, Message: world.HelloText}); err != nil {
		return
	}

	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "player_id", playerID)
			return

		case <-outbox.Done():
			h.logger.Debug("SSE listener dropped", "player_id", playerID)
			return

		case msg := <-outbox.Messages():
			if err := h.sendSSE(w, msg); err != nil {
				return
			}

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// sendSSE writes one frame as a Server-Sent Event.
func (h *EventsHandler) sendSSE(w http.ResponseWriter, msg world.Message) error {
	dataJSON, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", msg.Type); err != nil {
		h.logger.Error("Failed to write event type", "error", err)
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", dataJSON); err != nil {
		h.logger.Error("Failed to write event data", "error", err)
		return err
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
