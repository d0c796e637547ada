package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hintparty/internal/bus"
	"hintparty/internal/db"
	"hintparty/internal/store"

	"github.com/rs/zerolog"
)

const presenceWriteTimeout = 5 * time.Second

// Presence keeps one player's is_online and last_seen fields current. Every
// write runs on its own goroutine and failures are only logged, so presence
// never holds up a game action.
type Presence struct {
	store    store.Store
	bus      bus.Publisher
	roomID   string
	playerID string
	userID   string
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger

	wg        sync.WaitGroup
	seq       atomic.Uint64
	writeMu   sync.Mutex
	onlineSeq uint64
	seenSeq   uint64
}

func (e *Engine) NewPresence(player db.Player) *Presence {
	return &Presence{
		store:    e.store,
		bus:      e.bus,
		roomID:   player.RoomID,
		playerID: player.ID,
		userID:   player.UserID,
		interval: e.opts.HeartbeatInterval,
		now:      e.opts.Now,
		log:      e.log.With().Str("room_id", player.RoomID).Str("user_id", player.UserID).Logger(),
	}
}

func (p *Presence) MarkOnline(ctx context.Context) {
	online := true
	p.write(ctx, &online)
}

func (p *Presence) MarkOffline(ctx context.Context) {
	online := false
	p.write(ctx, &online)
}

// SetVisible maps page visibility onto presence: hidden is offline.
func (p *Presence) SetVisible(ctx context.Context, visible bool) {
	if visible {
		p.MarkOnline(ctx)
		return
	}
	p.MarkOffline(ctx)
}

// Heartbeat touches last_seen without changing is_online.
func (p *Presence) Heartbeat(ctx context.Context) {
	p.write(ctx, nil)
}

// Wait blocks until writes already started have finished.
func (p *Presence) Wait() {
	p.wg.Wait()
}

// write stores the change in the background. An online flag is never
// overwritten by an older one that lost the race.
func (p *Presence) write(ctx context.Context, online *bool) {
	ctx = context.WithoutCancel(ctx)
	seen := p.now()
	seq := p.seq.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, presenceWriteTimeout)
		defer cancel()

		p.writeMu.Lock()
		defer p.writeMu.Unlock()
		if online != nil {
			if seq < p.onlineSeq {
				return
			}
			p.onlineSeq = seq
		} else if seq < p.seenSeq {
			return
		}
		p.seenSeq = max(p.seenSeq, seq)
		if err := p.store.SetPresence(ctx, p.playerID, online, seen); err != nil {
			p.log.Debug().Err(err).Msg("presence write failed")
			return
		}
		if online == nil {
			return
		}
		player, err := p.store.GetPlayer(ctx, p.roomID, p.userID)
		if err != nil {
			p.log.Debug().Err(err).Msg("presence reload failed")
			return
		}
		ev := PlayerUpdated{Player: *player}
		if err := p.bus.Publish(ctx, bus.RoomChannel(p.roomID), ev.Name(), ev.payload()); err != nil {
			p.log.Debug().Err(err).Msg("presence publish failed")
		}
	}()
}

// Run sends a heartbeat every interval until ctx is done.
func (p *Presence) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Heartbeat(ctx)
		}
	}
}
