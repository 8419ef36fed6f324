package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/fractured-truths/pkg/storage"
	"github.com/jwebster45206/fractured-truths/pkg/world"
)

const (
	keyPlayers       = "ft:players"
	keyPlayerOrder   = "ft:players:order"
	keyEntities      = "ft:entities"
	keyEntityOrder   = "ft:entities:order"
	keyFactions      = "ft:factions"
	keyFactionOrder  = "ft:factions:order"
	keyEvents        = "ft:events"
	keyOverlayPrefix = "ft:overlay:"
)

// upsertOrdered sets a hash field and records first-seen order in a list.
var upsertOrdered = redis.NewScript(`
	if redis.call("hset", KEYS[1], ARGV[1], ARGV[2]) == 1 then
		redis.call("rpush", KEYS[2], ARGV[1])
	end
	return 1
`)

// insertOrdered is upsertOrdered without overwrite; returns 0 when the field exists.
var insertOrdered = redis.NewScript(`
	if redis.call("hsetnx", KEYS[1], ARGV[1], ARGV[2]) == 1 then
		redis.call("rpush", KEYS[2], ARGV[1])
		return 1
	end
	return 0
`)

// RedisStorage implements storage.Storage on a redis server. Players,
// entities and factions are hashes with a companion order list; the event log
// is a list whose positions give each event its Seq.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisClient accepts either a redis:// URL or a bare host:port address.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if strings.Contains(redisURL, "://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(client *redis.Client, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		logger: logger,
	}
}

// Client returns the underlying connection, shared with the broadcast relay.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Players

func (r *RedisStorage) CreatePlayer(ctx context.Context, p world.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}
	created, err := insertOrdered.Run(ctx, r.client, []string{keyPlayers, keyPlayerOrder}, p.ID, string(data)).Int()
	if err != nil {
		r.logger.Error("Failed to create player", "player_id", p.ID, "error", err)
		return fmt.Errorf("failed to create player: %w", err)
	}
	if created == 0 {
		return fmt.Errorf("player %s already exists", p.ID)
	}
	return nil
}

func (r *RedisStorage) GetPlayer(ctx context.Context, id string) (*world.Player, error) {
	data, err := r.client.HGet(ctx, keyPlayers, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load player: %w", err)
	}
	var p world.Player
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}
	return &p, nil
}

func (r *RedisStorage) ListPlayers(ctx context.Context) ([]world.Player, error) {
	return listOrdered[world.Player](ctx, r.client, keyPlayers, keyPlayerOrder)
}

// Entities and factions

func (r *RedisStorage) UpsertEntity(ctx context.Context, e world.Entity) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	if err := upsertOrdered.Run(ctx, r.client, []string{keyEntities, keyEntityOrder}, e.ID, string(data)).Err(); err != nil {
		r.logger.Error("Failed to upsert entity", "entity_id", e.ID, "error", err)
		return fmt.Errorf("failed to upsert entity: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListEntities(ctx context.Context) ([]world.Entity, error) {
	return listOrdered[world.Entity](ctx, r.client, keyEntities, keyEntityOrder)
}

func (r *RedisStorage) UpsertFaction(ctx context.Context, f world.Faction) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal faction: %w", err)
	}
	if err := upsertOrdered.Run(ctx, r.client, []string{keyFactions, keyFactionOrder}, f.ID, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to upsert faction: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListFactions(ctx context.Context) ([]world.Faction, error) {
	return listOrdered[world.Faction](ctx, r.client, keyFactions, keyFactionOrder)
}

func listOrdered[T any](ctx context.Context, client *redis.Client, hashKey, orderKey string) ([]T, error) {
	ids, err := client.LRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", orderKey, err)
	}
	out := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	vals, err := client.HMGet(ctx, hashKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", hashKey, err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(s), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s %s: %w", hashKey, ids[i], err)
		}
		out = append(out, item)
	}
	return out, nil
}

// Event log

func (r *RedisStorage) AppendEvent(ctx context.Context, evt world.GameEvent) (world.GameEvent, error) {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	if evt.Payload == nil {
		evt.Payload = world.Document{}
	}
	evt.Seq = 0

	data, err := json.Marshal(evt)
	if err != nil {
		return world.GameEvent{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	n, err := r.client.RPush(ctx, keyEvents, data).Result()
	if err != nil {
		r.logger.Error("Failed to append event", "event_id", evt.ID, "error", err)
		return world.GameEvent{}, fmt.Errorf("failed to append event: %w", err)
	}
	evt.Seq = n
	return evt, nil
}

func (r *RedisStorage) ListEvents(ctx context.Context, limit int) ([]world.GameEvent, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	var lenCmd *redis.IntCmd
	var rangeCmd *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lenCmd = pipe.LLen(ctx, keyEvents)
		rangeCmd = pipe.LRange(ctx, keyEvents, start, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	raw := rangeCmd.Val()
	first := lenCmd.Val() - int64(len(raw)) + 1
	out := make([]world.GameEvent, 0, len(raw))
	for i, s := range raw {
		var evt world.GameEvent
		if err := json.Unmarshal([]byte(s), &evt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		evt.Seq = first + int64(i)
		out = append(out, evt)
	}
	return out, nil
}

func (r *RedisStorage) EventCount(ctx context.Context) (int64, error) {
	n, err := r.client.LLen(ctx, keyEvents).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// Overlays

func (r *RedisStorage) GetOverlay(ctx context.Context, playerID string) (*world.OverlayView, error) {
	data, err := r.client.Get(ctx, keyOverlayPrefix+playerID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to load overlay", "player_id", playerID, "error", err)
		return nil, fmt.Errorf("failed to load overlay: %w", err)
	}
	var v world.OverlayView
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overlay: %w", err)
	}
	return &v, nil
}

func (r *RedisStorage) SetOverlay(ctx context.Context, view world.OverlayView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal overlay: %w", err)
	}
	if err := r.client.Set(ctx, keyOverlayPrefix+view.PlayerID, data, 0).Err(); err != nil {
		r.logger.Error("Failed to save overlay", "player_id", view.PlayerID, "error", err)
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}
