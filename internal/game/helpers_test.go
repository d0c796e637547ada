package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"hintparty/internal/bus"
	"hintparty/internal/db"
	"hintparty/internal/identity"
	"hintparty/internal/store"

	"github.com/stretchr/testify/require"
)

var testWords = []db.Word{
	{ID: "w-1", Word: "苹果", WordEn: "Apple", Category: "水果", CategoryEn: "Fruit", Length: 2},
	{ID: "w-2", Word: "长颈鹿", WordEn: "Giraffe", Category: "动物", CategoryEn: "Animal", Length: 3},
	{ID: "w-3", Word: "冰淇淋", WordEn: "Ice Cream", Category: "食物", CategoryEn: "Food", Length: 3},
	{ID: "w-4", Word: "火车", WordEn: "Train", Category: "交通", CategoryEn: "Transport", Length: 2},
	{ID: "w-5", Word: "月亮", WordEn: "Moon", Category: "自然", CategoryEn: "Nature", Length: 2},
}

type fixture struct {
	ctx    context.Context
	store  *store.Memory
	bus    *bus.Local
	engine *Engine

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, tweaks ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: store.NewMemory(),
		bus:   bus.NewLocal(),
		now:   time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
	}
	opts := Options{
		RoundDuration:     120 * time.Second,
		PollInterval:      time.Hour,
		HeartbeatInterval: time.Hour,
		WordChoices:       3,
		MaxPlayers:        8,
		Now:               f.clock,
		Shuffle:           func(int, func(i, j int)) {},
	}
	for _, tweak := range tweaks {
		tweak(&opts)
	}
	f.engine = NewEngine(f.store, f.bus, opts)
	t.Cleanup(f.engine.Close)

	for _, w := range testWords {
		word := w
		require.NoError(t, f.store.UpsertWord(f.ctx, &word))
	}
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func member(name string) identity.Identity {
	return identity.Identity{UserID: name, SignedIn: true}
}

// lobby creates a room owned by u0 with n players, all ready.
func (f *fixture) lobby(t *testing.T, n int) (*db.Room, []identity.Identity) {
	t.Helper()
	users := make([]identity.Identity, n)
	for i := range users {
		users[i] = member(fmt.Sprintf("u%d", i))
	}
	room, _, err := f.engine.CreateRoom(f.ctx, users[0], CreateRoomInput{Name: "friday", Nickname: "u0", MaxPlayers: 8})
	require.NoError(t, err)
	for _, u := range users[1:] {
		_, _, err := f.engine.JoinRoom(f.ctx, u, room.Code, u.UserID)
		require.NoError(t, err)
		_, err = f.engine.SetReady(f.ctx, u, room.ID, true)
		require.NoError(t, err)
	}
	return room, users
}

// guessing starts the game and has the first picker choose w-1.
func (f *fixture) guessing(t *testing.T, n int) (*db.Room, []identity.Identity, *db.Round) {
	t.Helper()
	room, users := f.lobby(t, n)
	_, err := f.engine.StartGame(f.ctx, users[0], room.ID)
	require.NoError(t, err)
	round, err := f.engine.SelectWord(f.ctx, users[0], room.ID, "w-1")
	require.NoError(t, err)
	return room, users, round
}

func (f *fixture) room(t *testing.T, id string) *db.Room {
	t.Helper()
	room, err := f.store.GetRoom(f.ctx, id)
	require.NoError(t, err)
	return room
}

func (f *fixture) player(t *testing.T, roomID string, who identity.Identity) *db.Player {
	t.Helper()
	p, err := f.store.GetPlayer(f.ctx, roomID, who.UserID)
	require.NoError(t, err)
	return p
}

func (f *fixture) currentRound(t *testing.T, roomID string) *db.Round {
	t.Helper()
	room := f.room(t, roomID)
	round, err := f.store.GetRoundByNumber(f.ctx, roomID, room.CurrentRound)
	require.NoError(t, err)
	return round
}

// timeout runs the clock past the round deadline and ends the round as admin.
func (f *fixture) timeout(t *testing.T, roomID string, admin identity.Identity) {
	t.Helper()
	f.advance(121 * time.Second)
	require.NoError(t, f.engine.EndRoundOnTimeout(f.ctx, admin, roomID))
}
