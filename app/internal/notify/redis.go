package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pulse/app/internal/alerts"
)

// Redis PUBLISHes each alert as JSON on a channel
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis connects and pings the server
func NewRedis(addr, channel string, timeout time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Redis{client: client, channel: channel}, nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Notify(ctx context.Context, a alerts.Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return r.client.Publish(ctx, r.channel, body).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
