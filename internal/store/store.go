// Package store is the record store used by the game engine. Two
// implementations exist: Memory for tests and single-process development, and
// Gorm for Postgres.
package store

import (
	"context"
	"errors"
	"time"

	"hintparty/internal/db"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with an existing row")
)

type RoomFilter struct {
	Public    *bool
	Status    string
	Finalized *bool
	Limit     int
}

type Store interface {
	CreateRoom(ctx context.Context, room *db.Room) error
	GetRoom(ctx context.Context, id string) (*db.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*db.Room, error)
	UpdateRoom(ctx context.Context, room *db.Room) error
	// ListRooms returns rooms newest first.
	ListRooms(ctx context.Context, filter RoomFilter) ([]db.Room, error)
	// FinalizeRoom flips the finalized flag and reports whether this call did it.
	FinalizeRoom(ctx context.Context, roomID string) (bool, error)

	CreatePlayer(ctx context.Context, player *db.Player) error
	GetPlayer(ctx context.Context, roomID, userID string) (*db.Player, error)
	// ListPlayers returns the room's players ordered by player_order.
	ListPlayers(ctx context.Context, roomID string) ([]db.Player, error)
	CountPlayers(ctx context.Context, roomIDs []string) (map[string]int, error)
	DeletePlayer(ctx context.Context, playerID string) error
	SetPlayerReady(ctx context.Context, playerID string, ready bool) error
	SetPlayerSeat(ctx context.Context, playerID string, order int, admin bool) error
	// SetPresence touches last_seen and, when online is non-nil, is_online.
	SetPresence(ctx context.Context, playerID string, online *bool, seen time.Time) error
	AddPlayerScore(ctx context.Context, playerID string, delta int) error

	CreateRound(ctx context.Context, round *db.Round) error
	GetRound(ctx context.Context, id string) (*db.Round, error)
	GetRoundByNumber(ctx context.Context, roomID string, number int) (*db.Round, error)
	ListRounds(ctx context.Context, roomID string) ([]db.Round, error)
	UpdateRound(ctx context.Context, round *db.Round) error
	// EndRound moves a selecting or guessing round to ended. It reports false
	// when the round had already ended.
	EndRound(ctx context.Context, roundID, reason string, at time.Time) (bool, error)
	// MarkPickerScored reports true only for the call that set the flag.
	MarkPickerScored(ctx context.Context, roundID string) (bool, error)

	CreateGuess(ctx context.Context, guess *db.Guess) error
	// ListGuesses returns a round's guesses ordered by guessed_at.
	ListGuesses(ctx context.Context, roundID string) ([]db.Guess, error)

	// ListHintTypes returns the catalog with options, both by sort_order.
	ListHintTypes(ctx context.Context) ([]db.HintType, error)
	GetHintOption(ctx context.Context, id string) (*db.HintOption, error)
	UpsertHintType(ctx context.Context, hintType *db.HintType) error
	CreateHint(ctx context.Context, hint *db.RoundHint) error
	UpdateHintOption(ctx context.Context, hintID, optionID string, at time.Time) error
	// ListHints returns a round's hints ordered by slot, with type and option.
	ListHints(ctx context.Context, roundID string) ([]db.RoundHint, error)

	UpsertRating(ctx context.Context, rating *db.RoundRating) error
	GetRating(ctx context.Context, roundID, voterID string) (*db.RoundRating, error)
	ListRatings(ctx context.Context, roundIDs []string) ([]db.RoundRating, error)
	SavePickerStats(ctx context.Context, stats []db.PickerStat) error
	ListPickerStats(ctx context.Context, roomID string) ([]db.PickerStat, error)

	EnsureUser(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*db.User, error)
	AddUserTotals(ctx context.Context, userID string, score, games int) error

	UpsertWord(ctx context.Context, word *db.Word) error
	GetWord(ctx context.Context, id string) (*db.Word, error)
	// ListWords returns up to limit words; with a limit the Postgres store
	// samples at random.
	ListWords(ctx context.Context, limit int) ([]db.Word, error)

	SetRejoinCode(ctx context.Context, userID, code string) error
	GetRejoinCode(ctx context.Context, userID string) (string, error)
	ClearRejoinCode(ctx context.Context, userID string) error

	AppendEvent(ctx context.Context, event *db.Event) error
	ListEvents(ctx context.Context, roomID string, limit int) ([]db.Event, error)
}
