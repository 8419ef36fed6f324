package storage

import (
	"context"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// CanonicalStore holds the shared world: players, entities, factions and the
// append-only event log. Lookups of missing records return nil, nil.
type CanonicalStore interface {
	ListEntities(ctx context.Context) ([]world.Entity, error)
	ListFactions(ctx context.Context) ([]world.Faction, error)
	ListPlayers(ctx context.Context) ([]world.Player, error)
	GetPlayer(ctx context.Context, id string) (*world.Player, error)

	UpsertEntity(ctx context.Context, e world.Entity) error
	UpsertFaction(ctx context.Context, f world.Faction) error
	CreatePlayer(ctx context.Context, p world.Player) error

	// AppendEvent adds evt to the end of the log and returns it with Seq set.
	// A blank ID is replaced with a fresh UUID and a zero CreatedAt with now.
	AppendEvent(ctx context.Context, evt world.GameEvent) (world.GameEvent, error)
	// ListEvents returns the newest limit events, oldest first. limit <= 0 returns all.
	ListEvents(ctx context.Context, limit int) ([]world.GameEvent, error)
	// EventCount is the length of the log, which is also the Seq of the newest event.
	EventCount(ctx context.Context) (int64, error)
}

// OverlayStore holds one OverlayView per player.
type OverlayStore interface {
	GetOverlay(ctx context.Context, playerID string) (*world.OverlayView, error)
	SetOverlay(ctx context.Context, view world.OverlayView) error
}

// Storage combines both stores with lifecycle operations.
type Storage interface {
	Ping(ctx context.Context) error
	Close() error

	CanonicalStore
	OverlayStore
}
