// Package world holds the canonical data model shared by every player and the
// per-player artifacts derived from it.
package world

import (
	"strings"
	"time"
)

// WorldStatusEntityID is the entity the pipeline upserts after every action.
const WorldStatusEntityID = "world:status"

// Player is a participant registered on join. Players are immutable once created.
type Player struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Alignment   Alignment `json:"alignment,omitempty"`
}

// Entity is a canonical world object. Upserts are last-write-wins by ID.
type Entity struct {
	ID   string   `json:"id"`
	Kind string   `json:"kind"`
	Data Document `json:"data"`
}

// Faction is seeded externally and read-only to the pipeline.
type Faction struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Data Document `json:"data"`
}

// GameEvent is one entry of the append-only canonical log.
// Seq is the 1-based log position assigned by the store on append.
type GameEvent struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	PlayerID  string    `json:"playerId,omitempty"`
	Type      string    `json:"type"`
	Payload   Document  `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// CanonicalEvent is the slice of a GameEvent that drives narrative composition.
type CanonicalEvent struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Payload     Document `json:"payload,omitempty"`
}

// CanonicalEventFrom derives a CanonicalEvent. The description comes from the
// payload's "description" field and falls back to the event type.
func CanonicalEventFrom(evt GameEvent) CanonicalEvent {
	description := strings.TrimSpace(evt.Payload.String("description"))
	if description == "" {
		description = evt.Type
	}
	return CanonicalEvent{
		Type:        evt.Type,
		Description: description,
		Payload:     evt.Payload,
	}
}

// OverlayView is the latest view document produced for one player.
// The version fields hold the Seq of the event whose overlay and narrative
// were last applied.
type OverlayView struct {
	PlayerID         string    `json:"playerId"`
	View             Document  `json:"view"`
	UpdatedAt        time.Time `json:"updatedAt"`
	OverlayVersion   int64     `json:"overlayVersion"`
	NarrativeVersion int64     `json:"narrativeVersion"`
}

// NarrativeMap maps player IDs to the narrative composed for them.
type NarrativeMap map[string]string

// NarrativeKey is the view field narratives are merged into.
const NarrativeKey = "narrative"
