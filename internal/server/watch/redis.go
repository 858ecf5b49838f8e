package watch

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel carrying topics.
const DefaultChannel = "sendit:changes"

// RedisPublisher shares notifications between server instances. Topics are
// published on a Redis channel and every instance, including the sender,
// relays what it receives into its local hub.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     logging.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, hub *Hub, log logging.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, hub: hub, log: log}
}

// Notify publishes topics. When Redis is unreachable the local hub is
// notified directly so subscribers on this instance still see the change.
func (p *RedisPublisher) Notify(ctx context.Context, topics ...string) {
	for _, topic := range topics {
		if err := p.client.Publish(ctx, p.channel, topic).Err(); err != nil {
			p.log.Warn(ctx, "redis publish failed, notifying locally", "topic", topic, "error", err)
			p.hub.Notify(ctx, topic)
		}
	}
}

// Run relays received topics into the hub until ctx is cancelled.
func (p *RedisPublisher) Run(ctx context.Context) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.channel, err)
	}
	p.log.Info(ctx, "relaying change notifications", "channel", p.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			p.hub.Notify(ctx, msg.Payload)
		}
	}
}
