package narrative

import (
	"context"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// Mock composes templated narratives without a generation engine. It backs
// LLM_PROVIDER=mock.
type Mock struct{}

var _ Composer = Mock{}

func NewMock() Mock {
	return Mock{}
}

func (Mock) Compose(_ context.Context, evt world.CanonicalEvent, players []world.Player) world.NarrativeMap {
	out := make(world.NarrativeMap, len(players))
	for _, p := range players {
		out[p.ID] = p.Alignment.FallbackNarrative(evt.Description)
	}
	return out
}
