package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel shared by API instances.
const DefaultChannel = "linkage:realtime"

// RedisBroker publishes envelopes on a Redis channel; every instance subscribed
// to it delivers them to its local connections.
type RedisBroker struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisBroker(client *redis.Client, channel string, hub *Hub) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{client: client, channel: channel, hub: hub}
}

func (b *RedisBroker) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Start subscribes to the channel and delivers envelopes until ctx is cancelled.
// It returns once the subscription is confirmed.
func (b *RedisBroker) Start(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.Warnf("realtime: bad envelope on %s: %v", b.channel, err)
					continue
				}
				b.hub.Deliver(env)
			}
		}
	}()
	return nil
}
