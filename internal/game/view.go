package game

import (
	"slices"
	"sort"
	"time"

	"hintparty/internal/db"
)

// Snapshot is the full state of a room as read from the store.
type Snapshot struct {
	Room    *db.Room       `json:"room"`
	Players []db.Player    `json:"players"`
	Round   *db.Round      `json:"round,omitempty"`
	Guesses []db.Guess     `json:"guesses"`
	Hints   []db.RoundHint `json:"hints"`
}

// View is one participant's local copy of a room. It is written only by the
// session loop that owns it.
type View struct {
	Snapshot
	WordChoices      []db.Word `json:"word_choices,omitempty"`
	ChoicesRoundID   string    `json:"-"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Players: slices.Clone(s.Players),
		Guesses: slices.Clone(s.Guesses),
		Hints:   slices.Clone(s.Hints),
	}
	if s.Room != nil {
		room := *s.Room
		out.Room = &room
	}
	if s.Round != nil {
		round := *s.Round
		out.Round = &round
	}
	return out
}

func (v View) clone() View {
	out := v
	out.Snapshot = v.Snapshot.clone()
	out.WordChoices = slices.Clone(v.WordChoices)
	return out
}

// Redact hides what the viewer may not see yet: the word until the round
// ends unless the viewer picked it, and the word shape until guessing starts.
// Correct guesses by other players spell the word, so their text goes too.
func (s Snapshot) Redact(viewer string) Snapshot {
	if s.Round == nil || s.Round.PickerID == viewer || s.Round.Status == db.RoundEnded {
		return s
	}
	round := *s.Round
	round.Word = ""
	round.WordEn = ""
	if round.Status == db.RoundSelecting {
		round.WordLength = 0
		round.WordLengthEn = 0
		round.Category = ""
		round.CategoryEn = ""
	}
	s.Round = &round
	s.Guesses = redactGuesses(s.Guesses, viewer)
	return s
}

func redactGuesses(guesses []db.Guess, viewer string) []db.Guess {
	if guesses == nil {
		return nil
	}
	out := make([]db.Guess, len(guesses))
	for i, g := range guesses {
		if g.IsCorrect && g.UserID != viewer {
			g.Text = ""
		}
		out[i] = g
	}
	return out
}

func (v View) Redact(viewer string) View {
	v.Snapshot = v.Snapshot.Redact(viewer)
	if v.Round == nil || v.Round.PickerID != viewer {
		v.WordChoices = nil
	}
	return v
}

// Self returns the viewer's player record.
func (s Snapshot) Self(userID string) (db.Player, bool) {
	for _, p := range s.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return db.Player{}, false
}

// Active reports whether a player is online and has sent a heartbeat within
// staleAfter.
func Active(p db.Player, now time.Time, staleAfter time.Duration) bool {
	return p.IsOnline && now.Sub(p.LastSeen) <= staleAfter
}

// Remaining returns the whole seconds left in a guessing round.
func Remaining(round *db.Round, now time.Time, duration time.Duration) int {
	if round == nil || round.Status != db.RoundGuessing || round.StartedAt == nil {
		return 0
	}
	left := duration - now.Sub(*round.StartedAt)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// Replace adopts a polled snapshot wholesale. Poll results win over anything
// merged from push events since the last poll.
func (v *View) Replace(snap *Snapshot) {
	if snap == nil {
		return
	}
	fresh := snap.clone()
	if fresh.Round != nil && v.Round != nil && fresh.Round.ID == v.Round.ID && fresh.Round.Word == "" {
		fresh.Round.Word = v.Round.Word
		fresh.Round.WordEn = v.Round.WordEn
	}
	v.Snapshot = fresh
	if v.Round == nil || v.Round.ID != v.ChoicesRoundID || v.Round.Status != db.RoundSelecting {
		v.WordChoices = nil
		v.ChoicesRoundID = ""
	}
}

// Apply merges one push event into the view. Inserts are deduplicated by id
// and updates patch by id, so repeated delivery leaves the view unchanged.
func (v *View) Apply(ev Event, self string) {
	switch e := ev.(type) {
	case RoomUpdated:
		if v.Room == nil || v.Room.ID == e.Room.ID {
			room := e.Room
			v.Room = &room
		}
	case PlayerJoined:
		v.upsertPlayer(e.Player, true)
	case PlayerUpdated:
		v.upsertPlayer(e.Player, false)
	case PlayerLeft:
		players := v.Players[:0:0]
		for _, p := range v.Players {
			if p.ID != e.PlayerID {
				players = append(players, p)
			}
		}
		v.Players = players
	case RoundStarted:
		v.adoptRound(e.Round)
	case RoundUpdated:
		v.adoptRound(e.Round)
	case GuessAdded:
		if v.Round == nil || v.Round.ID != e.Guess.RoundID {
			return
		}
		for _, g := range v.Guesses {
			if g.ID == e.Guess.ID {
				return
			}
		}
		v.Guesses = append(v.Guesses, e.Guess)
		sort.SliceStable(v.Guesses, func(i, j int) bool {
			return v.Guesses[i].GuessedAt.Before(v.Guesses[j].GuessedAt)
		})
	case WordChoicesOffered:
		if e.PickerID != self {
			return
		}
		v.WordChoices = append([]db.Word(nil), e.Words...)
		v.ChoicesRoundID = e.RoundID
	case HintAdded:
		if v.Round == nil || v.Round.ID != e.Hint.RoundID {
			return
		}
		for _, h := range v.Hints {
			if h.SlotNumber == e.Hint.SlotNumber {
				return
			}
		}
		v.Hints = append(v.Hints, e.Hint)
		sort.Slice(v.Hints, func(i, j int) bool {
			return v.Hints[i].SlotNumber < v.Hints[j].SlotNumber
		})
	case HintUpdated:
		if v.Round == nil || v.Round.ID != e.Hint.RoundID {
			return
		}
		for i := range v.Hints {
			if v.Hints[i].SlotNumber == e.Hint.SlotNumber {
				v.Hints[i] = e.Hint
				return
			}
		}
	case GameEnded:
		if v.Room != nil && v.Room.ID == e.RoomID {
			v.Room.Status = db.RoomFinished
		}
		v.Round = nil
		v.Guesses = nil
		v.Hints = nil
		v.WordChoices = nil
		v.ChoicesRoundID = ""
	}
}

func (v *View) upsertPlayer(player db.Player, insert bool) {
	for i := range v.Players {
		if v.Players[i].ID == player.ID {
			v.Players[i] = player
			v.sortPlayers()
			return
		}
	}
	if !insert {
		return
	}
	v.Players = append(v.Players, player)
	v.sortPlayers()
}

func (v *View) sortPlayers() {
	sort.SliceStable(v.Players, func(i, j int) bool {
		return v.Players[i].PlayerOrder < v.Players[j].PlayerOrder
	})
}

// adoptRound patches the current round, or moves to a newer one and drops
// the previous round's guesses and hints.
func (v *View) adoptRound(round db.Round) {
	if v.Round != nil && v.Round.ID == round.ID {
		if round.Word == "" {
			round.Word = v.Round.Word
			round.WordEn = v.Round.WordEn
		}
		v.Round = &round
	} else if v.Round == nil || round.RoundNumber > v.Round.RoundNumber {
		v.Round = &round
		v.Guesses = nil
		v.Hints = nil
	} else {
		return
	}
	if v.ChoicesRoundID != "" && (v.ChoicesRoundID != round.ID || round.Status != db.RoundSelecting) {
		v.WordChoices = nil
		v.ChoicesRoundID = ""
	}
}
