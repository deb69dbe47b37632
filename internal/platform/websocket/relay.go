package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRelayChannel is the Redis channel events travel on between
// instances.
const DefaultRelayChannel = "dashboard:events"

// RedisRelay publishes events through Redis Pub/Sub so that a page connected
// to one instance sees progress for a run executing on another. Every
// instance runs the relay and forwards what it receives to its local hub.
type RedisRelay struct {
	client  *redis.Client
	hub     *Hub
	channel string
	logger  zerolog.Logger
}

func NewRedisRelay(client *redis.Client, hub *Hub, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		hub:     hub,
		channel: DefaultRelayChannel,
		logger:  logger,
	}
}

// Publish implements EventPublisher.
func (r *RedisRelay) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal relay event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish relay event: %w", err)
	}
	return nil
}

// Run subscribes to the relay channel and forwards events to the local hub
// until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info().Str("channel", r.channel).Msg("event relay subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		r.logger.Warn().Err(err).Msg("event relay: dropping malformed message")
		return
	}
	r.hub.Broadcast(event.Topic, event)
}
