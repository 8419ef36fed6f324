package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := NewRedisClient("redis://" + mr.Addr())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s := NewRedisStorage(client, logger)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestNewRedisClient_AcceptsBareAddress(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedisClient(mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())

	_, err = NewRedisClient("http://localhost:6379")
	assert.Error(t, err)
}

func TestRedisStorage_Ping(t *testing.T) {
	s, mr := setupTestRedis(t)
	assert.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestRedisStorage_Players(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestRedis(t)

	require.NoError(t, s.CreatePlayer(ctx, world.Player{ID: "a", DisplayName: "Alice", Alignment: world.AlignmentMerciful}))
	require.NoError(t, s.CreatePlayer(ctx, world.Player{ID: "b", DisplayName: "Bert", Alignment: world.AlignmentTyrannical}))
	assert.Error(t, s.CreatePlayer(ctx, world.Player{ID: "a", DisplayName: "Dup"}))

	p, err := s.GetPlayer(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Alice", p.DisplayName)

	missing, err := s.GetPlayer(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	players, err := s.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "a", players[0].ID)
	assert.Equal(t, "Alice", players[0].DisplayName, "duplicate create must not overwrite")
	assert.Equal(t, world.AlignmentTyrannical, players[1].Alignment)
}

func TestRedisStorage_EntitiesAndFactions(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestRedis(t)

	require.NoError(t, s.UpsertEntity(ctx, world.Entity{ID: "town", Kind: "place", Data: world.Document{"pop": "10"}}))
	require.NoError(t, s.UpsertEntity(ctx, world.Entity{ID: "keep", Kind: "place"}))
	require.NoError(t, s.UpsertEntity(ctx, world.Entity{ID: "town", Kind: "place", Data: world.Document{"pop": "5"}}))

	entities, err := s.ListEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "town", entities[0].ID)
	assert.Equal(t, "5", entities[0].Data.String("pop"))

	require.NoError(t, s.UpsertFaction(ctx, world.Faction{ID: "guild", Name: "Merchants Guild"}))
	factions, err := s.ListFactions(ctx)
	require.NoError(t, err)
	require.Len(t, factions, 1)
	assert.Equal(t, "Merchants Guild", factions[0].Name)
}

func TestRedisStorage_EventLog(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestRedis(t)

	empty, err := s.ListEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, typ := range []string{"a", "b", "c"} {
		evt, err := s.AppendEvent(ctx, world.GameEvent{PlayerID: "p", Type: typ})
		require.NoError(t, err)
		assert.NotEmpty(t, evt.ID)
		assert.NotNil(t, evt.Payload)
	}

	count, err := s.EventCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	last2, err := s.ListEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last2, 2)
	assert.Equal(t, "b", last2[0].Type)
	assert.Equal(t, int64(2), last2[0].Seq)
	assert.Equal(t, int64(3), last2[1].Seq)

	all, err := s.ListEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].Seq)
}

func TestRedisStorage_Overlay(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestRedis(t)

	v, err := s.GetOverlay(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.SetOverlay(ctx, world.OverlayView{
		PlayerID:       "a",
		View:           world.Document{"brief": "Welcome Alice", "narrative": "Taxes rise."},
		OverlayVersion: 3,
	}))

	v, err = s.GetOverlay(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Welcome Alice", v.View.String("brief"))
	assert.Equal(t, "Taxes rise.", v.View.String(world.NarrativeKey))
	assert.Equal(t, int64(3), v.OverlayVersion)
}
