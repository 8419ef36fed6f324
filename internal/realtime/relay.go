package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

// RelayChannel is the redis pub/sub channel shared by every server process.
const RelayChannel = "fractured-truths:broadcast"

// Relay publishes frames through redis so that every process's hub delivers
// them to its own listeners, including the publishing process.
type Relay struct {
	client *redis.Client
	hub    *Hub
	logger *slog.Logger
}

func NewRelay(client *redis.Client, hub *Hub, logger *slog.Logger) *Relay {
	return &Relay{
		client: client,
		hub:    hub,
		logger: logger,
	}
}

// Broadcast publishes msg. When publishing fails the frame is delivered to
// the local hub only.
func (r *Relay) Broadcast(ctx context.Context, msg world.Message) {
	if err := r.publish(ctx, msg); err != nil {
		r.logger.Warn("Relay publish failed, delivering locally", "error", err)
		r.hub.Broadcast(ctx, msg)
	}
}

func (r *Relay) publish(ctx context.Context, msg world.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal frame: %w", world.ErrBroadcastFailure, err)
	}
	if err := r.client.Publish(ctx, RelayChannel, data).Err(); err != nil {
		return fmt.Errorf("%w: failed to publish frame: %w", world.ErrBroadcastFailure, err)
	}
	r.logger.Debug("Frame published", "channel", RelayChannel, "type", msg.Type)
	return nil
}

// Start subscribes to the relay channel and forwards frames to the hub until
// ctx is cancelled. It returns once the subscription is confirmed.
func (r *Relay) Start(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, RelayChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", RelayChannel, err)
	}
	r.logger.Info("Broadcast relay subscribed", "channel", RelayChannel)

	go func() {
		defer func() {
			if err := pubsub.Close(); err != nil {
				r.logger.Error("Failed to close pubsub", "error", err)
			}
		}()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg world.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					r.logger.Error("Failed to unmarshal relayed frame", "error", err)
					continue
				}
				r.hub.Broadcast(ctx, msg)
			}
		}
	}()
	return nil
}
