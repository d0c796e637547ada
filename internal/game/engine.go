// Package game runs rooms and rounds of the word-hint party game: the lobby,
// the round state machine, scoring, hints, ratings and the per-participant
// sessions that keep a local view of a room in sync.
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"hintparty/internal/bus"
	"hintparty/internal/config"
	"hintparty/internal/db"
	"hintparty/internal/log"
	"hintparty/internal/metrics"
	"hintparty/internal/store"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

const (
	maxHintSlots      = 5
	defaultRoomLimit  = 20
	wordPoolSample    = 100
	minPlayersToStart = 2
	maxRoomPlayers    = 12
)

// Finisher is told when a room finishes so post-game work can run.
type Finisher interface {
	GameFinished(ctx context.Context, roomID string) error
}

type Options struct {
	RoundDuration     time.Duration
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	WordChoices       int
	MaxPlayers        int
	// ServerTimers ends guessing rounds from the server when they time out,
	// without waiting for an admin session to notice.
	ServerTimers bool
	Finisher     Finisher
	Now          func() time.Time
	Shuffle      func(n int, swap func(i, j int))
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		RoundDuration:     cfg.RoundDuration(),
		PollInterval:      cfg.PollInterval(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
		WordChoices:       cfg.WordChoices,
		MaxPlayers:        cfg.MaxPlayers,
		ServerTimers:      true,
	}
}

type Engine struct {
	store store.Store
	bus   bus.Bus
	opts  Options
	log   zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	choicesMu sync.Mutex
	choices   map[string]WordChoicesOffered

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func NewEngine(st store.Store, b bus.Bus, opts Options) *Engine {
	defaults := OptionsFromConfig(config.Default())
	if opts.RoundDuration <= 0 {
		opts.RoundDuration = defaults.RoundDuration
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if opts.WordChoices <= 0 {
		opts.WordChoices = defaults.WordChoices
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = defaults.MaxPlayers
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Shuffle == nil {
		opts.Shuffle = rand.Shuffle
	}
	return &Engine{
		store:   st,
		bus:     b,
		opts:    opts,
		log:     log.Component("game"),
		locks:   make(map[string]*sync.Mutex),
		choices: make(map[string]WordChoicesOffered),
		timers:  make(map[string]*time.Timer),
	}
}

func (e *Engine) Options() Options {
	return e.opts
}

// lockRoom serializes every mutation of one room inside this process.
func (e *Engine) lockRoom(roomID string) func() {
	e.locksMu.Lock()
	mu, ok := e.locks[roomID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[roomID] = mu
	}
	e.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// emit publishes a room event and records it in the event log. Failures are
// logged only; sessions recover missed events on their next poll.
func (e *Engine) emit(ctx context.Context, roomID, userID string, ev Event) {
	if err := e.bus.Publish(ctx, bus.RoomChannel(roomID), ev.Name(), ev.payload()); err != nil {
		metrics.BusPublishFailures.Inc()
		e.log.Warn().Err(err).Str("room_id", roomID).Str("event", ev.Name()).Msg("publish failed")
	}
	if ev.Name() == EventWordChoices {
		return
	}
	e.recordEvent(ctx, roomID, userID, ev)
}

func (e *Engine) recordEvent(ctx context.Context, roomID, userID string, ev Event) {
	data, err := json.Marshal(ev.payload())
	if err != nil {
		return
	}
	record := db.Event{
		RoomID:  roomID,
		Type:    ev.Name(),
		Payload: datatypes.JSON(data),
	}
	if userID != "" {
		record.UserID = &userID
	}
	switch v := ev.(type) {
	case RoundStarted:
		record.RoundID = &v.Round.ID
	case RoundUpdated:
		record.RoundID = &v.Round.ID
	case GuessAdded:
		record.RoundID = &v.Guess.RoundID
	case HintAdded:
		record.RoundID = &v.Hint.RoundID
	case HintUpdated:
		record.RoundID = &v.Hint.RoundID
	}
	if err := e.store.AppendEvent(ctx, &record); err != nil {
		e.log.Warn().Err(err).Str("room_id", roomID).Str("event", ev.Name()).Msg("event log write failed")
	}
}

func (e *Engine) publishLobby(ctx context.Context, event string, payload any) {
	if err := e.bus.Publish(ctx, bus.LobbyChannel, event, payload); err != nil {
		metrics.BusPublishFailures.Inc()
		e.log.Warn().Err(err).Str("event", event).Msg("lobby publish failed")
	}
}

// publicRound strips the word from rounds still in play before they go on
// the bus.
func publicRound(round db.Round) db.Round {
	if round.Status != db.RoundEnded {
		round.Word = ""
		round.WordEn = ""
	}
	return round
}

// Events returns the newest log entries of a room as viewer may see them:
// while a round is open, correct guesses by others lose their text.
func (e *Engine) Events(ctx context.Context, roomID, viewer string, limit int) ([]db.Event, error) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	events, err := e.store.ListEvents(ctx, roomID, limit)
	if err != nil {
		return nil, err
	}
	round, err := e.currentRound(ctx, room)
	if err != nil {
		return nil, err
	}
	if round == nil || round.Status == db.RoundEnded || round.PickerID == viewer {
		return events, nil
	}
	for i, ev := range events {
		if ev.Type != EventNewGuess || ev.RoundID == nil || *ev.RoundID != round.ID {
			continue
		}
		var guess db.Guess
		if err := json.Unmarshal([]byte(ev.Payload), &guess); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", ev.ID, err)
		}
		if !guess.IsCorrect || guess.UserID == viewer {
			continue
		}
		guess.Text = ""
		data, err := json.Marshal(guess)
		if err != nil {
			return nil, err
		}
		events[i].Payload = datatypes.JSON(data)
	}
	return events, nil
}

// Snapshot reads the room, its players and, once a game is under way, the
// current round with its guesses and hints.
func (e *Engine) Snapshot(ctx context.Context, roomID string) (*Snapshot, error) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := e.store.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Room: room, Players: players, Guesses: []db.Guess{}, Hints: []db.RoundHint{}}
	if room.CurrentRound == 0 || room.Status == db.RoomFinished {
		return snap, nil
	}
	round, err := e.store.GetRoundByNumber(ctx, roomID, room.CurrentRound)
	if errors.Is(err, store.ErrNotFound) {
		return snap, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Round = round
	if snap.Guesses, err = e.store.ListGuesses(ctx, round.ID); err != nil {
		return nil, err
	}
	if snap.Hints, err = e.store.ListHints(ctx, round.ID); err != nil {
		return nil, err
	}
	return snap, nil
}
