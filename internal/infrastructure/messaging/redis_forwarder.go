package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS FORWARDER
// ══════════════════════════════════════════════════════════════════════════════

// DefaultRedisChannel is the Pub/Sub channel used when none is configured.
const DefaultRedisChannel = "offline-quest:events"

// RedisPublisher is the subset of the go-redis client used by the forwarder.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisForwarder mirrors bus events to a Redis Pub/Sub channel as JSON envelopes
// so out-of-process collaborators can observe progress.
// A publish failure is logged and never fails the local handler chain.
type RedisForwarder struct {
	client     RedisPublisher
	channel    string
	instanceID string
	timeout    time.Duration
	logger     *slog.Logger
	sub        shared.Subscription
}

// RedisForwarderConfig contains configuration for RedisForwarder.
type RedisForwarderConfig struct {
	// Client is the Redis client to use
	Client RedisPublisher

	// Channel is the Redis channel for events (default: "offline-quest:events")
	Channel string

	// InstanceID identifies this process in envelopes
	InstanceID string

	// PublishTimeout bounds each publish call (default: 2s)
	PublishTimeout time.Duration

	// Types limits forwarding to these event types (all when empty)
	Types []shared.EventType

	// Logger for structured logging
	Logger *slog.Logger
}

// NewRedisForwarder subscribes a forwarder to the bus.
func NewRedisForwarder(bus shared.EventSubscriber, config RedisForwarderConfig) (*RedisForwarder, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Channel == "" {
		config.Channel = DefaultRedisChannel
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 2 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	f := &RedisForwarder{
		client:     config.Client,
		channel:    config.Channel,
		instanceID: config.InstanceID,
		timeout:    config.PublishTimeout,
		logger:     config.Logger,
	}

	sub, err := bus.Subscribe(f.forward, config.Types...)
	if err != nil {
		return nil, fmt.Errorf("subscribe forwarder: %w", err)
	}
	f.sub = sub

	return f, nil
}

func (f *RedisForwarder) forward(event shared.Event) error {
	data, err := json.Marshal(NewEnvelope(f.instanceID, event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		f.logger.Warn("failed to forward event to redis",
			"event_type", event.EventType(),
			"channel", f.channel,
			"error", err,
		)
	}
	return nil
}

// Channel returns the channel events are published to.
func (f *RedisForwarder) Channel() string {
	return f.channel
}

// Close stops forwarding.
func (f *RedisForwarder) Close() {
	if f.sub != nil {
		f.sub.Unsubscribe()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT ENVELOPE (for serialization)
// ══════════════════════════════════════════════════════════════════════════════

// Envelope is the wire form of an event on Redis.
type Envelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// NewEnvelope wraps an event for publishing.
func NewEnvelope(instanceID string, event shared.Event) Envelope {
	return Envelope{
		InstanceID:  instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	}
}

// DecodeEnvelope parses a message published by a RedisForwarder.
func DecodeEnvelope(data []byte) (shared.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &reconstructedEvent{
		eventType:   env.EventType,
		aggregateID: env.AggregateID,
		occurredAt:  env.OccurredAt,
		payload:     env.Payload,
	}, nil
}

// reconstructedEvent is used to recreate events from Redis messages.
type reconstructedEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]interface{}
}

func (e *reconstructedEvent) EventType() shared.EventType {
	return e.eventType
}

func (e *reconstructedEvent) AggregateID() string {
	return e.aggregateID
}

func (e *reconstructedEvent) OccurredAt() time.Time {
	return e.occurredAt
}

func (e *reconstructedEvent) Payload() map[string]interface{} {
	return e.payload
}
