package bus

import (
	"context"
	"sync"

	"hintparty/internal/log"
)

const subscriptionBuffer = 64

// Local fans messages out to in-process subscribers. A subscriber whose
// buffer is full misses the message.
type Local struct {
	mu     sync.Mutex
	subs   map[string]map[chan Message]struct{}
	closed bool
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[chan Message]struct{})}
}

func (l *Local) Connect(context.Context) error {
	return nil
}

func (l *Local) Subscribe(_ context.Context, channel string) (*Subscription, error) {
	ch := make(chan Message, subscriptionBuffer)
	l.mu.Lock()
	group := l.subs[channel]
	if group == nil {
		group = make(map[chan Message]struct{})
		l.subs[channel] = group
	}
	group[ch] = struct{}{}
	l.mu.Unlock()

	sub := &Subscription{Channel: channel, ch: ch}
	sub.closeFn = func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if group, ok := l.subs[channel]; ok {
			if _, ok := group[ch]; ok {
				delete(group, ch)
				close(ch)
			}
			if len(group) == 0 {
				delete(l.subs, channel)
			}
		}
		return nil
	}
	return sub, nil
}

func (l *Local) Publish(_ context.Context, channel, event string, payload any) error {
	msg, err := encode(channel, event, payload)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs[channel] {
		select {
		case ch <- msg:
		default:
			logger := log.Component("bus")
			logger.Warn().Str("channel", channel).Str("event", event).Msg("subscriber buffer full, dropping message")
		}
	}
	return nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for channel, group := range l.subs {
		for ch := range group {
			close(ch)
		}
		delete(l.subs, channel)
	}
	return nil
}
