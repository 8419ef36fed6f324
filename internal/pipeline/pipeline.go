// Package pipeline runs the join and action flows: it records canonical
// changes, regenerates overlays, composes narratives and fans them out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jwebster45206/fractured-truths/internal/narrative"
	"github.com/jwebster45206/fractured-truths/internal/overlay"
	"github.com/jwebster45206/fractured-truths/internal/telemetry"
	"github.com/jwebster45206/fractured-truths/pkg/metrics"
	"github.com/jwebster45206/fractured-truths/pkg/storage"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// MaxDisplayNameLength is measured in runes.
const MaxDisplayNameLength = 64

// Broadcaster delivers frames to live connections. Delivery is best effort.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg world.Message)
}

// Options holds the optional collaborators. A nil Narrator disables
// narratives; a nil Broadcaster disables fan-out.
type Options struct {
	Narrator    narrative.Composer
	Broadcaster Broadcaster
	Metrics     *metrics.Manager
}

type Pipeline struct {
	store       storage.Storage
	overlays    overlay.Generator
	narrator    narrative.Composer
	broadcaster Broadcaster
	ledger      *Ledger
	metrics     *metrics.Manager
	logger      *slog.Logger
}

func New(store storage.Storage, overlays overlay.Generator, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:       store,
		overlays:    overlays,
		narrator:    opts.Narrator,
		broadcaster: opts.Broadcaster,
		ledger:      NewLedger(store, opts.Metrics, logger),
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// Join registers a player and stores their initial overlay.
func (p *Pipeline) Join(ctx context.Context, displayName, alignment string) (world.Player, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.Join")
	defer span.End()

	name := strings.TrimSpace(displayName)
	if name == "" {
		return world.Player{}, fmt.Errorf("%w: displayName is required", world.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return world.Player{}, fmt.Errorf("%w: displayName exceeds %d characters", world.ErrInvalidRequest, MaxDisplayNameLength)
	}
	align, err := world.ParseAlignment(alignment)
	if err != nil {
		return world.Player{}, err
	}

	player := world.Player{ID: uuid.New().String(), DisplayName: name, Alignment: align}
	if err := p.store.CreatePlayer(ctx, player); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return world.Player{}, fmt.Errorf("failed to create player: %w", err)
	}
	span.SetAttributes(attribute.String("player.id", player.ID))

	// The player exists; store their first view even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	stamp, err := p.store.EventCount(ctx)
	if err != nil {
		p.logger.Error("Failed to read event count for join", "player_id", player.ID, "error", err)
		return player, nil
	}
	p.regenerateOverlay(ctx, player, stamp)

	p.logger.Info("Player joined", "player_id", player.ID, "alignment", string(align))
	return player, nil
}

// View returns a player and their stored view. A player with no stored view
// gets an empty document.
func (p *Pipeline) View(ctx context.Context, playerID string) (world.Player, world.OverlayView, error) {
	if strings.TrimSpace(playerID) == "" {
		return world.Player{}, world.OverlayView{}, fmt.Errorf("%w: playerId is required", world.ErrInvalidRequest)
	}
	player, err := p.lookupPlayer(ctx, playerID)
	if err != nil {
		return world.Player{}, world.OverlayView{}, err
	}

	view, err := p.store.GetOverlay(ctx, playerID)
	if err != nil {
		return world.Player{}, world.OverlayView{}, fmt.Errorf("failed to load view: %w", err)
	}
	if view == nil {
		return player, world.OverlayView{PlayerID: playerID, View: world.Document{}}, nil
	}
	if view.View == nil {
		view.View = world.Document{}
	}
	return player, *view, nil
}

// Players lists the roster in join order.
func (p *Pipeline) Players(ctx context.Context) ([]world.Player, error) {
	return p.store.ListPlayers(ctx)
}

// History returns the newest limit events, oldest first.
func (p *Pipeline) History(ctx context.Context, limit int) ([]world.GameEvent, error) {
	return p.store.ListEvents(ctx, limit)
}

// HandleAction records an action and propagates its consequences. Only
// failures to record the action are returned; everything after the event is
// appended degrades to fallbacks and logs.
func (p *Pipeline) HandleAction(ctx context.Context, playerID, actionType string, payload world.Document) error {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.HandleAction")
	span.SetAttributes(attribute.String("player.id", playerID), attribute.String("action.type", actionType))
	defer span.End()

	err := p.handleAction(ctx, playerID, actionType, payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		p.metrics.ObserveAction(metrics.ResultError, time.Since(start))
		return err
	}
	p.metrics.ObserveAction(metrics.ResultOK, time.Since(start))
	return nil
}

func (p *Pipeline) handleAction(ctx context.Context, playerID, actionType string, payload world.Document) error {
	if strings.TrimSpace(actionType) == "" {
		return fmt.Errorf("%w: type is required", world.ErrInvalidRequest)
	}
	if strings.TrimSpace(playerID) == "" {
		return fmt.Errorf("%w: playerId is required", world.ErrInvalidRequest)
	}
	player, err := p.lookupPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if payload == nil {
		payload = world.Document{}
	}

	evt, err := p.store.AppendEvent(ctx, world.GameEvent{
		PlayerID:  playerID,
		Type:      actionType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	// The event is recorded; finish the rest even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	status := world.Entity{
		ID:   world.WorldStatusEntityID,
		Kind: "world",
		Data: world.Document{
			"lastAction":  actionType,
			"lastActor":   playerID,
			"lastEventId": evt.ID,
			"updatedAt":   evt.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := p.store.UpsertEntity(ctx, status); err != nil {
		return fmt.Errorf("failed to update world status: %w", err)
	}

	p.logger.Info("Action recorded", "player_id", playerID, "event_id", evt.ID, "seq", evt.Seq, "type", actionType)

	p.regenerateOverlay(ctx, player, evt.Seq)

	if p.narrator == nil {
		return nil
	}
	byPlayer := p.composeNarratives(ctx, evt)
	if p.broadcaster != nil && byPlayer != nil {
		p.broadcaster.Broadcast(ctx, world.NarrativesMessage(evt, byPlayer))
	}
	return nil
}

func (p *Pipeline) lookupPlayer(ctx context.Context, playerID string) (world.Player, error) {
	player, err := p.store.GetPlayer(ctx, playerID)
	if err != nil {
		return world.Player{}, fmt.Errorf("failed to load player: %w", err)
	}
	if player == nil {
		return world.Player{}, fmt.Errorf("%w: player %s", world.ErrNotFound, playerID)
	}
	return *player, nil
}

// regenerateOverlay snapshots canonical state and stores a fresh overlay.
func (p *Pipeline) regenerateOverlay(ctx context.Context, player world.Player, stamp int64) {
	entities, err := p.store.ListEntities(ctx)
	if err != nil {
		p.logger.Error("Failed to snapshot entities", "player_id", player.ID, "error", err)
		return
	}
	factions, err := p.store.ListFactions(ctx)
	if err != nil {
		p.logger.Error("Failed to snapshot factions", "player_id", player.ID, "error", err)
		return
	}

	doc := p.overlays.Generate(ctx, overlay.Request{
		PlayerID:    player.ID,
		DisplayName: player.DisplayName,
		Entities:    entities,
		Factions:    factions,
	})
	if _, err := p.ledger.ApplyOverlay(ctx, player.ID, stamp, doc); err != nil {
		p.logger.Error("Failed to persist overlay", "player_id", player.ID, "error", err)
	}
}

// composeNarratives composes for the whole roster and merges each narrative
// into its player's view. It returns nil when the roster cannot be read.
func (p *Pipeline) composeNarratives(ctx context.Context, evt world.GameEvent) world.NarrativeMap {
	players, err := p.store.ListPlayers(ctx)
	if err != nil {
		p.logger.Error("Failed to list players for narratives", "event_id", evt.ID, "error", err)
		return nil
	}

	byPlayer := p.narrator.Compose(ctx, world.CanonicalEventFrom(evt), players)
	for _, pl := range players {
		text, ok := byPlayer[pl.ID]
		if !ok {
			continue
		}
		if _, err := p.ledger.ApplyNarrative(ctx, pl.ID, evt.Seq, text); err != nil {
			p.logger.Error("Failed to persist narrative", "player_id", pl.ID, "event_id", evt.ID, "error", err)
		}
	}
	return byPlayer
}
