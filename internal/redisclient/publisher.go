package redisclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher sends JSON encoded messages to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

type redisPublisher struct {
	client redis.Cmdable
}

// NewRedisPublisher creates a Publisher backed by Redis pub/sub.
func NewRedisPublisher(client redis.Cmdable) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err = p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
