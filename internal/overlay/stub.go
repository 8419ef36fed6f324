package overlay

import (
	"context"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// Stub produces deterministic overlays without a generation engine. It backs
// LLM_PROVIDER=mock.
type Stub struct{}

var _ Generator = Stub{}

func NewStub() Stub {
	return Stub{}
}

// Generate lists one rumor per faction and reveals the first entity.
func (Stub) Generate(_ context.Context, req Request) world.Document {
	rumors := make([]any, 0, len(req.Factions))
	for _, f := range req.Factions {
		rumors = append(rumors, map[string]any{
			"factionId": f.ID,
			"note":      f.Name + " watches the roads.",
		})
	}
	visible := make([]any, 0, 1)
	if len(req.Entities) > 0 {
		visible = append(visible, map[string]any{
			"id":   req.Entities[0].ID,
			"kind": req.Entities[0].Kind,
		})
	}
	return world.Document{
		"brief":           "Welcome " + req.DisplayName,
		"rumors":          rumors,
		"visibleEntities": visible,
	}
}
