package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hintparty/internal/bus"
	"hintparty/internal/db"
	"hintparty/internal/identity"
	"hintparty/internal/store"

	"github.com/rs/zerolog"
)

// Session is one participant's live connection to a room. A single goroutine
// owns the view and applies push events, poll snapshots and countdown ticks
// in arrival order. Anonymous participants are poll-only.
type Session struct {
	engine   *Engine
	who      identity.Identity
	roomID   string
	presence *Presence
	sub      *bus.Subscription
	log      zerolog.Logger

	mu   sync.RWMutex
	view View

	updates   chan struct{}
	snapshots chan *Snapshot
	refresh   chan struct{}
	polling   atomic.Bool
	firedFor  string

	wg        sync.WaitGroup
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// OpenSession loads the room for a member, marks them online and starts the
// sync loop. The loop stops when ctx is cancelled or Close is called.
func (e *Engine) OpenSession(ctx context.Context, who identity.Identity, roomID string) (*Session, error) {
	if !who.Valid() {
		return nil, identity.ErrMissing
	}
	player, err := e.store.GetPlayer(ctx, roomID, who.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, e.reject("open_session", "caller is not a member")
	}
	if err != nil {
		return nil, err
	}
	snap, err := e.Snapshot(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var sub *bus.Subscription
	if who.SignedIn {
		if sub, err = e.bus.Subscribe(ctx, bus.RoomChannel(roomID)); err != nil {
			return nil, fmt.Errorf("subscribe to room %s: %w", roomID, err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		engine:    e,
		who:       who,
		roomID:    roomID,
		presence:  e.NewPresence(*player),
		sub:       sub,
		log:       e.log.With().Str("room_id", roomID).Str("user_id", who.UserID).Logger(),
		updates:   make(chan struct{}, 1),
		snapshots: make(chan *Snapshot, 1),
		refresh:   make(chan struct{}, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.adopt(snap)
	s.presence.MarkOnline(ctx)
	go s.run(loopCtx)
	return s, nil
}

func (s *Session) RoomID() string {
	return s.roomID
}

func (s *Session) Identity() identity.Identity {
	return s.who
}

// View returns a copy of the current local view.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.clone()
}

// Updates signals after the view changed. Signals coalesce.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Done is closed once the loop has stopped and the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) SetVisible(ctx context.Context, visible bool) {
	s.presence.SetVisible(ctx, visible)
}

// Refresh asks the loop to poll now instead of waiting for the next tick.
func (s *Session) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Close stops the loop, unsubscribes and marks the player offline.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		s.presence.Wait()
	})
}

func (s *Session) run(ctx context.Context) {
	poll := time.NewTicker(s.engine.opts.PollInterval)
	tick := time.NewTicker(time.Second)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.presence.Run(ctx)
	}()
	defer func() {
		poll.Stop()
		tick.Stop()
		s.wg.Wait()
		if s.sub != nil {
			_ = s.sub.Close()
		}
		s.presence.MarkOffline(ctx)
		close(s.done)
	}()

	var messages <-chan bus.Message
	if s.sub != nil {
		messages = s.sub.C()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			ev, err := DecodeEvent(msg)
			if err != nil {
				s.log.Debug().Err(err).Str("event", msg.Event).Msg("event ignored")
				continue
			}
			s.update(func(v *View) {
				v.Apply(ev, s.who.UserID)
				v.RemainingSeconds = Remaining(v.Round, s.engine.opts.Now(), s.engine.opts.RoundDuration)
			})
		case snap := <-s.snapshots:
			s.adopt(snap)
		case <-poll.C:
			s.poll(ctx)
		case <-s.refresh:
			s.poll(ctx)
		case <-tick.C:
			s.countdown(ctx)
		}
	}
}

// poll fetches a snapshot off the loop goroutine. At most one poll is in
// flight.
func (s *Session) poll(ctx context.Context) {
	if !s.polling.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.polling.Store(false)
		snap, err := s.engine.Snapshot(ctx, s.roomID)
		if err != nil {
			s.log.Debug().Err(err).Msg("poll failed")
			return
		}
		select {
		case s.snapshots <- snap:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) adopt(snap *Snapshot) {
	var choices []db.Word
	if r := snap.Round; r != nil && r.Status == db.RoundSelecting && r.PickerID == s.who.UserID {
		choices = s.engine.PendingWordChoices(r.ID, s.who.UserID)
	}
	s.update(func(v *View) {
		v.Replace(snap)
		if choices != nil {
			v.WordChoices = choices
			v.ChoicesRoundID = snap.Round.ID
		}
		v.RemainingSeconds = Remaining(v.Round, s.engine.opts.Now(), s.engine.opts.RoundDuration)
	})
}

// countdown refreshes the remaining time. An admin whose clock reaches zero
// asks the engine to end the round, once per round.
func (s *Session) countdown(ctx context.Context) {
	round := s.view.Round
	remaining := Remaining(round, s.engine.opts.Now(), s.engine.opts.RoundDuration)
	if remaining != s.view.RemainingSeconds {
		s.update(func(v *View) { v.RemainingSeconds = remaining })
	}
	if remaining > 0 || round == nil || round.Status != db.RoundGuessing || round.StartedAt == nil {
		return
	}
	if s.firedFor == round.ID {
		return
	}
	if self, ok := s.view.Self(s.who.UserID); !ok || !self.IsAdmin {
		return
	}
	s.firedFor = round.ID
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.engine.EndRoundOnTimeout(ctx, s.who, s.roomID)
		if err != nil && !errors.Is(err, ErrRejected) {
			s.log.Warn().Err(err).Msg("round timeout failed")
		}
		s.poll(ctx)
	}()
}

func (s *Session) update(fn func(v *View)) {
	s.mu.Lock()
	fn(&s.view)
	s.mu.Unlock()
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
