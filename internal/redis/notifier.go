package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"rideshare/internal/domain"
)

// PubSubNotifier publishes ride events on Redis pub/sub channels.
type PubSubNotifier struct {
	client *redis.Client
}

// NewPubSubNotifier creates a new PubSubNotifier.
func NewPubSubNotifier(client *redis.Client) *PubSubNotifier {
	return &PubSubNotifier{client: client}
}

// Publish sends event as JSON on channel.
func (n *PubSubNotifier) Publish(ctx context.Context, channel string, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}
