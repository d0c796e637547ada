// Package bus carries room events between the engine and connected sessions.
// Delivery is best effort and at-least-once from the subscriber's point of
// view: events may be dropped or repeated, and consumers must tolerate both.
package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const LobbyChannel = "lobby"

func RoomChannel(roomID string) string {
	return "room:" + roomID
}

// Message is one event on a channel.
type Message struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

type Bus interface {
	Publisher
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, channel string) (*Subscription, error)
	Close() error
}

// Subscription delivers messages for one channel until closed.
type Subscription struct {
	Channel string
	ch      chan Message
	once    sync.Once
	closeFn func() error
}

func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		if s.closeFn != nil {
			err = s.closeFn()
		}
	})
	return err
}

func encode(channel, event string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Channel: channel,
		Event:   event,
		Payload: raw,
		SentAt:  time.Now().UTC(),
	}, nil
}
