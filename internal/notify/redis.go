// Package notify republishes node change events to external subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nodestore/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis channel node events are published on
const DefaultChannel = "nodestore:events"

const publishTimeout = 2 * time.Second

// publisher is the subset of the Redis client used here
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes node events as JSON on a Redis pub/sub channel
type RedisPublisher struct {
	client  publisher
	channel string
	close   func() error
	log     zerolog.Logger
}

// NewRedisPublisher connects to the Redis server at url and verifies it is reachable
func NewRedisPublisher(ctx context.Context, url, channel string, log zerolog.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	p := newPublisher(client, channel, log)
	p.close = client.Close
	return p, nil
}

func newPublisher(client publisher, channel string, log zerolog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		log:     log.With().Str("component", "redis_publisher").Str("channel", channel).Logger(),
	}
}

// Channel returns the channel events are published on
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish sends a single event and returns the number of receivers
func (p *RedisPublisher) Publish(ctx context.Context, event service.Event) (int64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	n, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return n, nil
}

// Run publishes every event received on events until the channel is closed
// or ctx is done. Publish failures are logged and skipped.
func (p *RedisPublisher) Run(ctx context.Context, events <-chan service.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			n, err := p.Publish(pubCtx, ev)
			cancel()
			if err != nil {
				p.log.Warn().Err(err).Msg("event not published")
				continue
			}
			p.log.Debug().Str("event", string(ev.Type)).Int64("receivers", n).Msg("event published")
		}
	}
}

// Close releases the Redis connection
func (p *RedisPublisher) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}
