package narrative

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/fractured-truths/internal/services"
	"github.com/jwebster45206/fractured-truths/pkg/chat"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var taxEvent = world.CanonicalEvent{Type: "policy_change", Description: "King raises tax"}

func roster() []world.Player {
	return []world.Player{
		{ID: "m", DisplayName: "Alice", Alignment: world.AlignmentMerciful},
		{ID: "t", DisplayName: "Bert", Alignment: world.AlignmentTyrannical},
		{ID: "c", DisplayName: "Cato", Alignment: world.AlignmentCorruptChancellor},
	}
}

// stanceEcho answers with a sentence naming the style line it was given.
func stanceEcho(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	user := messages[len(messages)-1].Content
	for _, line := range strings.Split(user, "\n") {
		if style, ok := strings.CutPrefix(line, "Style: "); ok {
			return "King raises tax, and " + strings.ToLower(style) + " Extra sentence.", nil
		}
	}
	return "", errors.New("no style line")
}

func TestService_StancesAreDistinct(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.GenerateFunc = stanceEcho

	out := NewService(llm, Options{Timeout: time.Second}, nil, testLogger()).Compose(context.Background(), taxEvent, roster())

	require.Len(t, out, 3)
	assert.NotEqual(t, out["m"], out["t"])
	assert.NotEqual(t, out["m"], out["c"])
	assert.NotEqual(t, out["t"], out["c"])
	for id, text := range out {
		assert.Contains(t, text, "King raises tax", id)
		assert.NotContains(t, text, "Extra sentence", "only the first sentence is kept")
	}
}

func TestService_ForcedFailureUsesFallbackForThatPlayerOnly(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.GenerateFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		if strings.Contains(messages[len(messages)-1].Content, "(t)") {
			return "", errors.New("provider down")
		}
		return "The realm reacts.", nil
	}

	out := NewService(llm, Options{}, nil, testLogger()).Compose(context.Background(), taxEvent, roster())

	require.Len(t, out, 3)
	assert.Equal(t, "King raises tax — A show of strength; dissent will fade.", out["t"])
	assert.Equal(t, "The realm reacts.", out["m"])
	assert.Equal(t, "The realm reacts.", out["c"])
}

func TestService_EmptyOutputFallsBack(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetResponse("   ")

	out := NewService(llm, Options{}, nil, testLogger()).Compose(context.Background(), taxEvent, roster()[:1])
	assert.Equal(t, world.AlignmentMerciful.FallbackNarrative("King raises tax"), out["m"])
}

func TestService_TimeoutFallsBack(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.GenerateFunc = func(ctx context.Context, _ []chat.ChatMessage) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	out := NewService(llm, Options{Timeout: 10 * time.Millisecond}, nil, testLogger()).Compose(context.Background(), taxEvent, roster())
	require.Len(t, out, 3)
	assert.Equal(t, world.AlignmentCorruptChancellor.FallbackNarrative("King raises tax"), out["c"])
}

func TestService_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	llm := services.NewMockLLMAPI()
	llm.GenerateFunc = func(ctx context.Context, _ []chat.ChatMessage) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return "ok.", nil
	}

	players := make([]world.Player, 0, 12)
	for i := 0; i < 12; i++ {
		players = append(players, world.Player{ID: string(rune('a' + i))})
	}

	out := NewService(llm, Options{Concurrency: 2}, nil, testLogger()).Compose(context.Background(), taxEvent, players)
	assert.Len(t, out, 12)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestService_EmptyRoster(t *testing.T) {
	llm := services.NewMockLLMAPI()
	out := NewService(llm, Options{}, nil, testLogger()).Compose(context.Background(), taxEvent, nil)
	assert.Empty(t, out)
	assert.Equal(t, 0, llm.CallCount())
}

func TestMock_Compose(t *testing.T) {
	out := NewMock().Compose(context.Background(), taxEvent, append(roster(), world.Player{ID: "u"}))

	assert.Equal(t, "King raises tax — A burden on the poor; seek relief.", out["m"])
	assert.Equal(t, "King raises tax — A show of strength; dissent will fade.", out["t"])
	assert.Equal(t, "King raises tax — An opportunity; coffers swell for those in favor.", out["c"])
	assert.Equal(t, out["m"], out["u"], "unset alignment reads as merciful")
}
