// Package realtime fans pipeline frames out to connected listeners.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jwebster45206/fractured-truths/pkg/metrics"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// Mode controls what each listener receives from a narratives frame.
type Mode string

const (
	// ModeRouted sends each listener only its own player's narrative.
	ModeRouted Mode = "routed"
	// ModeGlobal sends the full narrative map to everyone.
	ModeGlobal Mode = "global"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRouted, "":
		return ModeRouted, nil
	case ModeGlobal:
		return ModeGlobal, nil
	}
	return "", fmt.Errorf("unknown broadcast mode %q", s)
}

// Listener is one live connection. Send must not block; it reports false
// when the frame could not be queued.
type Listener interface {
	Send(msg world.Message) bool
	Close()
}

type registration struct {
	playerID string
	listener Listener
}

// Hub is the in-process broadcast channel.
type Hub struct {
	mu        sync.RWMutex
	listeners map[*registration]struct{}
	mode      Mode
	metrics   *metrics.Manager
	logger    *slog.Logger
}

func NewHub(mode Mode, m *metrics.Manager, logger *slog.Logger) *Hub {
	return &Hub{
		listeners: make(map[*registration]struct{}),
		mode:      mode,
		metrics:   m,
		logger:    logger,
	}
}

// Register adds a listener bound to playerID, which may be empty. The
// returned function removes it and is safe to call more than once.
func (h *Hub) Register(playerID string, l Listener) (unregister func()) {
	reg := &registration{playerID: playerID, listener: l}
	h.mu.Lock()
	h.listeners[reg] = struct{}{}
	h.mu.Unlock()
	h.metrics.AddConnections(1)
	h.logger.Debug("Listener registered", "player_id", playerID)

	return func() { h.remove(reg) }
}

func (h *Hub) remove(reg *registration) {
	h.mu.Lock()
	_, ok := h.listeners[reg]
	delete(h.listeners, reg)
	h.mu.Unlock()
	if ok {
		h.metrics.AddConnections(-1)
		reg.listener.Close()
	}
}

// Count returns the number of registered listeners.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// CloseAll removes and closes every listener, ending their streams.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	regs := make([]*registration, 0, len(h.listeners))
	for reg := range h.listeners {
		regs = append(regs, reg)
	}
	h.mu.RUnlock()

	for _, reg := range regs {
		h.remove(reg)
	}
}

// Broadcast delivers msg to every listener. Listeners that cannot take the
// frame are dropped.
func (h *Hub) Broadcast(_ context.Context, msg world.Message) {
	h.mu.RLock()
	regs := make([]*registration, 0, len(h.listeners))
	for reg := range h.listeners {
		regs = append(regs, reg)
	}
	h.mu.RUnlock()

	for _, reg := range regs {
		frame := msg
		if h.mode == ModeRouted {
			frame = msg.ForPlayer(reg.playerID)
		}
		if reg.listener.Send(frame) {
			h.metrics.IncDelivery(metrics.ResultOK)
			continue
		}
		h.metrics.IncDelivery(metrics.ResultDropped)
		h.logger.Debug("Dropping unresponsive listener", "player_id", reg.playerID)
		h.remove(reg)
	}
}
