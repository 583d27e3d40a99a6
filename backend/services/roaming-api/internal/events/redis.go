package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the part of *redis.Client the sink uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes events on a Redis pub/sub channel.
type RedisSink struct {
	client  RedisClient
	channel string
}

// NewRedisSink returns a redis-backed sink.
func NewRedisSink(client RedisClient, channel string) *RedisSink {
	if channel == "" {
		channel = "roaming:debuglog"
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

// Deliver publishes the JSON encoded event.
func (s *RedisSink) Deliver(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", s.channel, err)
	}
	return nil
}
