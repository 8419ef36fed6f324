package realtime

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/fractured-truths/pkg/metrics"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func narratives() world.Message {
	return world.NarrativesMessage(
		world.GameEvent{ID: "e1", Seq: 1, Type: "policy_change"},
		world.NarrativeMap{"alice": "Mercy.", "bert": "Order."},
	)
}

func receive(t *testing.T, o *Outbox) world.Message {
	t.Helper()
	select {
	case msg := <-o.Messages():
		return msg
	default:
		t.Fatal("expected a queued frame")
		return world.Message{}
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeRouted, m)

	m, err = ParseMode(" GLOBAL ")
	require.NoError(t, err)
	assert.Equal(t, ModeGlobal, m)

	_, err = ParseMode("multicast")
	assert.Error(t, err)
}

func TestHub_RoutedDelivery(t *testing.T) {
	hub := NewHub(ModeRouted, metrics.NewManager(), testLogger())
	alice, bert, anon := NewOutbox(4), NewOutbox(4), NewOutbox(4)
	hub.Register("alice", alice)
	hub.Register("bert", bert)
	hub.Register("", anon)

	hub.Broadcast(context.Background(), narratives())

	assert.Equal(t, world.NarrativeMap{"alice": "Mercy."}, receive(t, alice).ByPlayer)
	assert.Equal(t, world.NarrativeMap{"bert": "Order."}, receive(t, bert).ByPlayer)
	anonFrame := receive(t, anon)
	assert.NotNil(t, anonFrame.ByPlayer)
	assert.Empty(t, anonFrame.ByPlayer)
	assert.Equal(t, "e1", anonFrame.Event.ID)
}

func TestHub_GlobalDelivery(t *testing.T) {
	hub := NewHub(ModeGlobal, nil, testLogger())
	alice, anon := NewOutbox(4), NewOutbox(4)
	hub.Register("alice", alice)
	hub.Register("", anon)

	hub.Broadcast(context.Background(), narratives())

	assert.Len(t, receive(t, alice).ByPlayer, 2)
	assert.Len(t, receive(t, anon).ByPlayer, 2)
}

func TestHub_DropsFullListeners(t *testing.T) {
	hub := NewHub(ModeGlobal, nil, testLogger())
	slow, fast := NewOutbox(1), NewOutbox(4)
	hub.Register("slow", slow)
	hub.Register("fast", fast)

	hub.Broadcast(context.Background(), narratives())
	hub.Broadcast(context.Background(), narratives())

	assert.Equal(t, 1, hub.Count(), "slow listener dropped after its queue filled")
	select {
	case <-slow.Done():
	default:
		t.Fatal("dropped listener should be closed")
	}
	assert.Len(t, fast.Messages(), 2)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(ModeRouted, metrics.NewManager(), testLogger())
	o := NewOutbox(1)
	unregister := hub.Register("a", o)
	assert.Equal(t, 1, hub.Count())

	unregister()
	unregister()
	assert.Equal(t, 0, hub.Count())
	assert.False(t, o.Send(world.Message{Type: world.MessageHello}), "closed outbox refuses frames")

	hub.Broadcast(context.Background(), narratives())
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub(ModeGlobal, metrics.NewManager(), testLogger())
	a, b := NewOutbox(1), NewOutbox(1)
	unregisterA := hub.Register("a", a)
	hub.Register("", b)
	require.Equal(t, 2, hub.Count())

	hub.CloseAll()
	assert.Equal(t, 0, hub.Count())
	for _, o := range []*Outbox{a, b} {
		select {
		case <-o.Done():
		default:
			t.Fatal("listener should be closed")
		}
	}

	unregisterA()
	hub.Broadcast(context.Background(), narratives())
}
