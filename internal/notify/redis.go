package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on the shared Redis channel so that every
// server process can relay them to its own clients.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher returns a publisher on Channel.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: Channel}
}

// Broadcast implements Broadcaster. Publish failures are logged only.
func (p *RedisPublisher) Broadcast(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("marshal event failed", "err", err)
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		slog.Warn("publish "+p.channel+" failed", "err", err)
	}
}

// Relay forwards events received on the Redis channel to a local
// Broadcaster, normally a Hub.
type Relay struct {
	rdb     *redis.Client
	channel string
	target  Broadcaster
}

// NewRelay creates a relay from Channel into target.
func NewRelay(rdb *redis.Client, target Broadcaster) *Relay {
	return &Relay{rdb: rdb, channel: Channel, target: target}
}

// Run subscribes and forwards until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before reporting readiness.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	slog.Info("relay subscribed", "channel", r.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				slog.Warn("relay: bad payload", "err", err)
				continue
			}
			r.target.Broadcast(ctx, ev)
		}
	}
}
