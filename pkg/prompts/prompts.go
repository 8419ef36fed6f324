package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// MaxOverlayItems caps how many entities and factions are listed in an overlay prompt.
const MaxOverlayItems = 10

// MaxNarrativeWords is the word budget requested from, and enforced on, narratives.
const MaxNarrativeWords = 25

const OverlaySystemPrompt = `You are a narrative assistant for a multiplayer asymmetric knowledge game.
Generate a short JSON overlay for a single player. The overlay MUST be valid JSON with keys:
- brief: string
- rumors: array of { factionId: string, note: string }
- visibleEntities: array of { id: string, kind: string }
Do not include prose outside the JSON.`

const NarrativeSystemPrompt = "Write a single-sentence narrative (max %d words) for a player in a social deduction game."

const NarrativePostPrompt = "No JSON. No preface. Output only the sentence."

// Content rating prompts
const ContentRatingG = `Write content suitable for young children. Avoid violence, romance and scary elements.`
const ContentRatingPG = `Write content suitable for children and families. Mild peril or tension is okay, but avoid strong language and dark themes.`
const ContentRatingPG13 = `Write content appropriate for teenagers. Avoid explicit adult situations and graphic violence.`
const ContentRatingR = `Write with full freedom for adult audiences.`

// GetContentRatingPrompt returns the rating prompt, defaulting to PG13.
func GetContentRatingPrompt(rating string) string {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(rating), "-", "")) {
	case "G":
		return ContentRatingG
	case "PG":
		return ContentRatingPG
	case "R":
		return ContentRatingR
	default:
		return ContentRatingPG13
	}
}

// OverlayInput is the canonical snapshot an overlay prompt is built from.
type OverlayInput struct {
	PlayerID    string
	DisplayName string
	Entities    []world.Entity
	Factions    []world.Faction
}

// OverlayPrompt builds the prompt asking for one player's overlay document.
func OverlayPrompt(in OverlayInput) *Builder {
	factions := make([]string, 0, MaxOverlayItems)
	for i, f := range in.Factions {
		if i == MaxOverlayItems {
			break
		}
		factions = append(factions, fmt.Sprintf("%s (%s)", f.ID, f.Name))
	}
	entities := make([]string, 0, MaxOverlayItems)
	for i, e := range in.Entities {
		if i == MaxOverlayItems {
			break
		}
		entities = append(entities, fmt.Sprintf("%s (%s)", e.ID, e.Kind))
	}

	return New().
		WithSystem(OverlaySystemPrompt).
		Line("Player: %s (%s)", in.DisplayName, in.PlayerID).
		List("Factions", factions).
		List("Entities", entities)
}

// NarrativePrompt builds the prompt for one player's take on an event.
func NarrativePrompt(evt world.CanonicalEvent, player world.Player, rating string) *Builder {
	return New().
		WithSystem(fmt.Sprintf(NarrativeSystemPrompt, MaxNarrativeWords)).
		WithSystem(GetContentRatingPrompt(rating)).
		Line("Event: %s", evt.Description).
		Line("Player: %s (%s)", player.DisplayName, player.ID).
		Line("Style: %s", player.Alignment.Stance().Instruction).
		Line("%s", NarrativePostPrompt)
}
