package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/kasperlindh/hunt-platform/pkg/http/ws"
)

const defaultEffectChannel = "session:effects"

// effectEnvelope is the Pub/Sub wire format for a batch of effects.
type effectEnvelope struct {
	TeamID  uuid.UUID `json:"team_id"`
	Effects []Effect  `json:"effects"`
}

// RedisEffectPublisher pushes effect batches onto a Redis Pub/Sub channel so
// every instance can deliver them to its own connected devices.
type RedisEffectPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisEffectPublisher creates an effect publisher. An empty channel uses
// the default.
func NewRedisEffectPublisher(client *redis.Client, channel string) *RedisEffectPublisher {
	if channel == "" {
		channel = defaultEffectChannel
	}
	return &RedisEffectPublisher{client: client, channel: channel}
}

var _ EffectPublisher = (*RedisEffectPublisher)(nil)

// PublishEffects sends one envelope per event pass.
func (p *RedisEffectPublisher) PublishEffects(ctx context.Context, teamID uuid.UUID, effects []Effect) error {
	data, err := json.Marshal(effectEnvelope{TeamID: teamID, Effects: effects})
	if err != nil {
		return fmt.Errorf("marshal effects: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish effects: %w", err)
	}
	return nil
}

// Broadcaster listens for Redis Pub/Sub effect envelopes and forwards them to
// the team's connected devices on this instance.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

// NewBroadcaster creates a Pub/Sub powered effect broadcaster.
func NewBroadcaster(redis *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = defaultEffectChannel
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "effect_broadcaster").Logger(),
	}
}

// Run subscribes to the effect channel and blocks until the context is
// cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var env effectEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode effect envelope")
		return
	}

	for _, effect := range env.Effects {
		raw, err := json.Marshal(ws.EffectPayload{
			Type:     effect.Type,
			Text:     effect.Text,
			TargetID: effect.TargetID,
		})
		if err != nil {
			b.logger.Warn().Err(err).Msg("failed to marshal effect payload")
			continue
		}

		msg := ws.Message{
			Type:    ws.TypeEffect,
			Payload: raw,
		}
		if err := b.hub.BroadcastToTeam(env.TeamID, msg); err != nil {
			b.logger.Debug().Err(err).Str("team_id", env.TeamID.String()).Msg("effect broadcast skipped")
		}
	}
}
