package game

import (
	"encoding/json"
	"fmt"

	"hintparty/internal/bus"
	"hintparty/internal/db"
)

const (
	EventRoomUpdate   = "room_update"
	EventPlayerJoined = "player_joined"
	EventPlayerUpdate = "player_update"
	EventPlayerLeft   = "player_left"
	EventRoundStarted = "round_started"
	EventRoundUpdate  = "round_update"
	EventNewGuess     = "new_guess"
	EventWordChoices  = "word_choices"
	EventHintAdded    = "hint_added"
	EventHintUpdated  = "hint_updated"
	EventGameEnded    = "game_ended"

	EventRoomCreated      = "room_created"
	EventRoomPlayerCount  = "room_player_count"
	EventLobbyRoomChanged = "room_changed"
)

// Event is one of the room events below. The set is closed.
type Event interface {
	Name() string
	payload() any
}

type RoomUpdated struct{ Room db.Room }

type PlayerJoined struct{ Player db.Player }

type PlayerUpdated struct{ Player db.Player }

type PlayerLeft struct {
	PlayerID string `json:"player_id"`
}

type RoundStarted struct{ Round db.Round }

type RoundUpdated struct{ Round db.Round }

type GuessAdded struct{ Guess db.Guess }

// WordChoicesOffered is published to the whole room but only the picker
// applies it.
type WordChoicesOffered struct {
	RoundID  string    `json:"round_id"`
	PickerID string    `json:"picker_id"`
	Words    []db.Word `json:"words"`
}

type HintAdded struct{ Hint db.RoundHint }

type HintUpdated struct{ Hint db.RoundHint }

type GameEnded struct {
	RoomID string `json:"room_id"`
}

func (RoomUpdated) Name() string        { return EventRoomUpdate }
func (PlayerJoined) Name() string       { return EventPlayerJoined }
func (PlayerUpdated) Name() string      { return EventPlayerUpdate }
func (PlayerLeft) Name() string         { return EventPlayerLeft }
func (RoundStarted) Name() string       { return EventRoundStarted }
func (RoundUpdated) Name() string       { return EventRoundUpdate }
func (GuessAdded) Name() string         { return EventNewGuess }
func (WordChoicesOffered) Name() string { return EventWordChoices }
func (HintAdded) Name() string          { return EventHintAdded }
func (HintUpdated) Name() string        { return EventHintUpdated }
func (GameEnded) Name() string          { return EventGameEnded }

func (e RoomUpdated) payload() any        { return e.Room }
func (e PlayerJoined) payload() any       { return e.Player }
func (e PlayerUpdated) payload() any      { return e.Player }
func (e PlayerLeft) payload() any         { return e }
func (e RoundStarted) payload() any       { return e.Round }
func (e RoundUpdated) payload() any       { return e.Round }
func (e GuessAdded) payload() any         { return e.Guess }
func (e WordChoicesOffered) payload() any { return e }
func (e HintAdded) payload() any          { return e.Hint }
func (e HintUpdated) payload() any        { return e.Hint }
func (e GameEnded) payload() any          { return e }

// DecodeEvent turns a bus message into a typed room event.
func DecodeEvent(msg bus.Message) (Event, error) {
	var (
		ev     Event
		target any
	)
	switch msg.Event {
	case EventRoomUpdate:
		e := &RoomUpdated{}
		ev, target = e, &e.Room
	case EventPlayerJoined:
		e := &PlayerJoined{}
		ev, target = e, &e.Player
	case EventPlayerUpdate:
		e := &PlayerUpdated{}
		ev, target = e, &e.Player
	case EventPlayerLeft:
		e := &PlayerLeft{}
		ev, target = e, e
	case EventRoundStarted:
		e := &RoundStarted{}
		ev, target = e, &e.Round
	case EventRoundUpdate:
		e := &RoundUpdated{}
		ev, target = e, &e.Round
	case EventNewGuess:
		e := &GuessAdded{}
		ev, target = e, &e.Guess
	case EventWordChoices:
		e := &WordChoicesOffered{}
		ev, target = e, e
	case EventHintAdded:
		e := &HintAdded{}
		ev, target = e, &e.Hint
	case EventHintUpdated:
		e := &HintUpdated{}
		ev, target = e, &e.Hint
	case EventGameEnded:
		e := &GameEnded{}
		ev, target = e, e
	default:
		return nil, fmt.Errorf("unknown event %q", msg.Event)
	}
	if err := json.Unmarshal(msg.Payload, target); err != nil {
		return nil, fmt.Errorf("decode %s: %w", msg.Event, err)
	}
	return deref(ev), nil
}

func deref(ev Event) Event {
	switch e := ev.(type) {
	case *RoomUpdated:
		return *e
	case *PlayerJoined:
		return *e
	case *PlayerUpdated:
		return *e
	case *PlayerLeft:
		return *e
	case *RoundStarted:
		return *e
	case *RoundUpdated:
		return *e
	case *GuessAdded:
		return *e
	case *WordChoicesOffered:
		return *e
	case *HintAdded:
		return *e
	case *HintUpdated:
		return *e
	case *GameEnded:
		return *e
	}
	return ev
}
