package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/fractured-truths/pkg/metrics"
	"github.com/jwebster45206/fractured-truths/pkg/storage"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// NoOverlayVersion marks a view that has a narrative but has never received
// an overlay. Any overlay stamp, including a join on an empty log, is newer.
const NoOverlayVersion int64 = -1

// Ledger serializes view writes per player and drops writes whose stamp is
// not newer than the version already applied. Stamps are event Seq values.
type Ledger struct {
	store   storage.OverlayStore
	locks   sync.Map // player id -> *sync.Mutex
	metrics *metrics.Manager
	logger  *slog.Logger
	now     func() time.Time
}

func NewLedger(store storage.OverlayStore, m *metrics.Manager, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:   store,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (l *Ledger) lock(playerID string) func() {
	mu, _ := l.locks.LoadOrStore(playerID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// ApplyOverlay replaces the player's overlay, keeping any narrative already
// merged into the view. It reports whether the write was applied.
func (l *Ledger) ApplyOverlay(ctx context.Context, playerID string, stamp int64, doc world.Document) (bool, error) {
	unlock := l.lock(playerID)
	defer unlock()

	cur, err := l.store.GetOverlay(ctx, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to read overlay: %w", err)
	}
	if cur != nil && stamp <= cur.OverlayVersion {
		l.metrics.IncStaleWrite(metrics.KindOverlay)
		l.logger.Debug("Discarding stale overlay", "player_id", playerID, "stamp", stamp, "applied", cur.OverlayVersion)
		return false, nil
	}

	next := world.OverlayView{
		PlayerID:       playerID,
		View:           doc.Clone(),
		UpdatedAt:      l.now(),
		OverlayVersion: stamp,
	}
	if cur != nil {
		next.NarrativeVersion = cur.NarrativeVersion
		if cur.View.Has(world.NarrativeKey) {
			next.View[world.NarrativeKey] = cur.View[world.NarrativeKey]
		}
	}
	if err := l.store.SetOverlay(ctx, next); err != nil {
		return false, fmt.Errorf("failed to save overlay: %w", err)
	}
	return true, nil
}

// ApplyNarrative merges text into the player's view under the narrative key,
// preserving every other field.
func (l *Ledger) ApplyNarrative(ctx context.Context, playerID string, stamp int64, text string) (bool, error) {
	unlock := l.lock(playerID)
	defer unlock()

	cur, err := l.store.GetOverlay(ctx, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to read overlay: %w", err)
	}
	if cur != nil && stamp <= cur.NarrativeVersion {
		l.metrics.IncStaleWrite(metrics.KindNarrative)
		l.logger.Debug("Discarding stale narrative", "player_id", playerID, "stamp", stamp, "applied", cur.NarrativeVersion)
		return false, nil
	}

	next := world.OverlayView{PlayerID: playerID, View: world.Document{}, OverlayVersion: NoOverlayVersion}
	if cur != nil {
		next = *cur
	}
	next.View = next.View.With(world.NarrativeKey, text)
	next.UpdatedAt = l.now()
	next.NarrativeVersion = stamp
	if err := l.store.SetOverlay(ctx, next); err != nil {
		return false, fmt.Errorf("failed to save narrative: %w", err)
	}
	return true, nil
}
