package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "comments:"

// RedisBridge publishes through Redis and relays every message received
// on the comments:* channels into the local Hub.
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger

	// bounds of the delay between subscribe attempts
	minRetry time.Duration
	maxRetry time.Duration
}

var _ Publisher = (*RedisBridge)(nil)

func NewRedisBridge(client *redis.Client, hub *Hub, log *zap.Logger) *RedisBridge {
	return &RedisBridge{
		client:   client,
		hub:      hub,
		logger:   log,
		minRetry: 500 * time.Millisecond,
		maxRetry: 30 * time.Second,
	}
}

// Publish sends payload to all API instances, this one included
func (b *RedisBridge) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, channelPrefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

// Run relays Redis messages to the hub until ctx is cancelled. A failed
// or lost subscription is retried with exponential backoff.
func (b *RedisBridge) Run(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.minRetry
	policy.MaxInterval = b.maxRetry
	policy.MaxElapsedTime = 0
	retry := backoff.WithContext(policy, ctx)

	for {
		err := b.relay(ctx, policy.Reset)
		if ctx.Err() != nil {
			return
		}

		wait := retry.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		b.logger.Warn("Realtime bridge unavailable, retrying",
			zap.Error(err),
			zap.Duration("retry_in", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// relay holds one subscription open; onSubscribed runs once Redis has
// confirmed it
func (b *RedisBridge) relay(ctx context.Context, onSubscribed func()) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	onSubscribed()
	b.logger.Info("Realtime bridge subscribed", zap.String("pattern", channelPrefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			topic := strings.TrimPrefix(msg.Channel, channelPrefix)
			b.hub.Broadcast(topic, []byte(msg.Payload))
		}
	}
}
