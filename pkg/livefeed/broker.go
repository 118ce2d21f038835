package livefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Publisher delivers a notification to every subscriber of every instance.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

// LocalBroker publishes straight into the in-process hub.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(_ context.Context, topic string, data []byte) error {
	b.hub.Broadcast(topic, data)
	return nil
}

type envelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// RedisBroker publishes on a Redis channel; every instance running Listen
// forwards what it receives to its own hub.
type RedisBroker struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisBroker(client *redis.Client, channel string, hub *Hub) *RedisBroker {
	return &RedisBroker{client: client, channel: channel, hub: hub}
}

// Publish expects data to be JSON.
func (b *RedisBroker) Publish(ctx context.Context, topic string, data []byte) error {
	payload, err := json.Marshal(envelope{Topic: topic, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal live feed message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish live feed message: %w", err)
	}
	return nil
}

// Listen relays channel messages to the hub until ctx is cancelled.
func (b *RedisBroker) Listen(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	logrus.WithField("channel", b.channel).Info("Live feed subscribed to Redis channel")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logrus.WithError(err).Warn("Dropping malformed live feed message")
				continue
			}
			b.hub.Broadcast(env.Topic, env.Data)
		}
	}
}
