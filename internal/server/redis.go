package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/splitsync/internal/wire"
)

// RedisChannel is the pub/sub channel shared by all backend instances.
const RedisChannel = "splitsync:events"

// Broadcaster delivers a frame to local connections in a room.
type Broadcaster interface {
	Broadcast(room string, f wire.Frame)
}

type envelope struct {
	Room  string     `json:"room"`
	Frame wire.Frame `json:"frame"`
}

// RedisFanout publishes events through Redis so every instance delivers
// them to its own connections, including the publishing instance.
type RedisFanout struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisFanout creates a fan-out over an existing client.
func NewRedisFanout(client *redis.Client, logger *slog.Logger) *RedisFanout {
	return &RedisFanout{client: client, logger: logger}
}

// DialRedisFanout connects to the Redis server at url, e.g. redis://localhost:6379/0.
func DialRedisFanout(ctx context.Context, url string, logger *slog.Logger) (*RedisFanout, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisFanout(client, logger), nil
}

// Publish sends the frame to every instance.
func (f *RedisFanout) Publish(ctx context.Context, room string, frame wire.Frame) error {
	data, err := json.Marshal(envelope{Room: room, Frame: frame})
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, RedisChannel, data).Err()
}

// Run delivers published frames to local until ctx is done.
func (f *RedisFanout) Run(ctx context.Context, local Broadcaster) error {
	sub := f.client.Subscribe(ctx, RedisChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", RedisChannel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				f.logger.Warn("Ignoring malformed fan-out message", "error", err)
				continue
			}
			local.Broadcast(env.Room, env.Frame)
		}
	}
}

// Close closes the Redis client.
func (f *RedisFanout) Close() error {
	return f.client.Close()
}
