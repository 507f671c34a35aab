package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher is the part of *redis.Client used for pub/sub.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBroker publishes events with Redis PUBLISH.
type RedisBroker struct {
	client RedisPublisher
}

// NewRedisBroker wraps a redis client.
func NewRedisBroker(client RedisPublisher) *RedisBroker {
	return &RedisBroker{client: client}
}

// Publish sends data to the channel's subscribers.
func (b *RedisBroker) Publish(ctx context.Context, channel string, data []byte) error {
	return b.client.Publish(ctx, channel, data).Err()
}

// Close is a no-op; the client is owned by persistence.Redis.
func (b *RedisBroker) Close() error {
	return nil
}
