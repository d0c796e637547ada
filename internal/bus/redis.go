package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"hintparty/internal/log"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "hintparty:"

// Redis carries messages over Redis pub/sub so every server process sees
// every room event.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Connect(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Publish(ctx context.Context, channel, event string, payload any) error {
	msg, err := encode(channel, event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, redisKeyPrefix+channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := r.client.Subscribe(ctx, redisKeyPrefix+channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}
	out := make(chan Message, subscriptionBuffer)
	done := make(chan struct{})
	logger := log.Component("bus")

	go func() {
		defer close(out)
		in := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					logger.Warn().Err(err).Str("channel", channel).Msg("dropping malformed message")
					continue
				}
				select {
				case out <- msg:
				case <-done:
					return
				default:
					logger.Warn().Str("channel", channel).Str("event", msg.Event).Msg("subscriber buffer full, dropping message")
				}
			}
		}
	}()

	sub := &Subscription{Channel: channel, ch: out}
	sub.closeFn = func() error {
		close(done)
		return pubsub.Close()
	}
	return sub, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
