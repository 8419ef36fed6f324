package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// MemoryStorage is an in-process Storage. It backs STORAGE_BACKEND=memory and
// doubles as the test store, with setters to inject failures.
type MemoryStorage struct {
	mu sync.RWMutex

	players     map[string]world.Player
	playerOrder []string
	entities    map[string]world.Entity
	entityOrder []string
	factions    map[string]world.Faction
	factionOrd  []string
	events      []world.GameEvent
	overlays    map[string]world.OverlayView

	pingError       error
	appendError     error
	upsertError     error
	setOverlayError error
}

// Ensure MemoryStorage implements Storage interface
var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		players:  make(map[string]world.Player),
		entities: make(map[string]world.Entity),
		factions: make(map[string]world.Faction),
		overlays: make(map[string]world.OverlayView),
	}
}

// SetPingError configures Ping to fail with err. nil restores success.
func (m *MemoryStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetAppendError configures AppendEvent to fail with err.
func (m *MemoryStorage) SetAppendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendError = err
}

// SetUpsertError configures UpsertEntity to fail with err.
func (m *MemoryStorage) SetUpsertError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertError = err
}

// SetOverlayError configures SetOverlay to fail with err.
func (m *MemoryStorage) SetOverlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setOverlayError = err
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) ListEntities(ctx context.Context) ([]world.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]world.Entity, 0, len(m.entityOrder))
	for _, id := range m.entityOrder {
		e := m.entities[id]
		e.Data = e.Data.Clone()
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryStorage) ListFactions(ctx context.Context) ([]world.Faction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]world.Faction, 0, len(m.factionOrd))
	for _, id := range m.factionOrd {
		f := m.factions[id]
		f.Data = f.Data.Clone()
		out = append(out, f)
	}
	return out, nil
}

func (m *MemoryStorage) ListPlayers(ctx context.Context) ([]world.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]world.Player, 0, len(m.playerOrder))
	for _, id := range m.playerOrder {
		out = append(out, m.players[id])
	}
	return out, nil
}

func (m *MemoryStorage) GetPlayer(ctx context.Context, id string) (*world.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStorage) UpsertEntity(ctx context.Context, e world.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertError != nil {
		return m.upsertError
	}
	if _, ok := m.entities[e.ID]; !ok {
		m.entityOrder = append(m.entityOrder, e.ID)
	}
	e.Data = e.Data.Clone()
	m.entities[e.ID] = e
	return nil
}

func (m *MemoryStorage) UpsertFaction(ctx context.Context, f world.Faction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.factions[f.ID]; !ok {
		m.factionOrd = append(m.factionOrd, f.ID)
	}
	f.Data = f.Data.Clone()
	m.factions[f.ID] = f
	return nil
}

func (m *MemoryStorage) CreatePlayer(ctx context.Context, p world.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[p.ID]; ok {
		return fmt.Errorf("player %s already exists", p.ID)
	}
	m.players[p.ID] = p
	m.playerOrder = append(m.playerOrder, p.ID)
	return nil
}

func (m *MemoryStorage) AppendEvent(ctx context.Context, evt world.GameEvent) (world.GameEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendError != nil {
		return world.GameEvent{}, m.appendError
	}
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	evt.Payload = evt.Payload.Clone()
	evt.Seq = int64(len(m.events)) + 1
	m.events = append(m.events, evt)
	return evt, nil
}

func (m *MemoryStorage) ListEvents(ctx context.Context, limit int) ([]world.GameEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := 0
	if limit > 0 && limit < len(m.events) {
		start = len(m.events) - limit
	}
	out := make([]world.GameEvent, len(m.events)-start)
	copy(out, m.events[start:])
	return out, nil
}

func (m *MemoryStorage) EventCount(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.events)), nil
}

func (m *MemoryStorage) GetOverlay(ctx context.Context, playerID string) (*world.OverlayView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.overlays[playerID]
	if !ok {
		return nil, nil
	}
	v.View = v.View.Clone()
	return &v, nil
}

func (m *MemoryStorage) SetOverlay(ctx context.Context, view world.OverlayView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setOverlayError != nil {
		return m.setOverlayError
	}
	view.View = view.View.Clone()
	m.overlays[view.PlayerID] = view
	return nil
}
