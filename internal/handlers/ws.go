package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jwebster45206/fractured-truths/internal/realtime"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool { return true },
}

// WebSocketHandler upgrades GET /ws?playerId=... and streams realtime frames.
// Inbound messages are ignored.
type WebSocketHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("WebSocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	defer conn.Close()

	playerID := r.URL.Query().Get("playerId")
	outbox := realtime.NewOutbox(realtime.DefaultOutboxSize)
	outbox.Send(world.Message{Type: world.MessageHello, Message: world.HelloText})
	unregister := h.hub.Register(playerID, outbox)
	defer unregister()

	h.logger.Info("WebSocket connection established",
		"player_id", playerID,
		"remote_addr", r.RemoteAddr)

	go h.readLoop(conn, outbox)
	h.writeLoop(conn, outbox)

	h.logger.Info("WebSocket connection closed", "player_id", playerID)
}

// readLoop drains inbound frames so control messages are processed, and
// closes the outbox once the peer goes away.
func (h *WebSocketHandler) readLoop(conn *websocket.Conn, outbox *realtime.Outbox) {
	defer outbox.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read failed", "error", err)
			}
			return
		}
	}
}

func (h *WebSocketHandler) writeLoop(conn *websocket.Conn, outbox *realtime.Outbox) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-outbox.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("WebSocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-outbox.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
