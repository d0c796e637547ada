package game

import (
	"strings"
	"testing"

	"hintparty/internal/db"
	"hintparty/internal/identity"
	"hintparty/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	f := newFixture(t)
	room, admin, err := f.engine.CreateRoom(f.ctx, member("u0"), CreateRoomInput{Name: " Friday ", Nickname: "Host", Public: true, MaxPlayers: 50})
	require.NoError(t, err)

	assert.True(t, ValidCode(room.Code))
	assert.Equal(t, "Friday", room.Name)
	assert.Equal(t, db.RoomWaiting, room.Status)
	assert.Equal(t, maxRoomPlayers, room.MaxPlayers)
	assert.True(t, admin.IsAdmin)
	assert.Zero(t, admin.PlayerOrder)

	code, err := f.store.GetRejoinCode(f.ctx, "u0")
	require.NoError(t, err)
	assert.Equal(t, room.Code, code)

	_, _, err = f.engine.CreateRoom(f.ctx, member("u1"), CreateRoomInput{Name: "", Nickname: "x"})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestJoinRoomCapacity(t *testing.T) {
	f := newFixture(t)
	room, _, err := f.engine.CreateRoom(f.ctx, member("u0"), CreateRoomInput{Name: "pair", Nickname: "u0", MaxPlayers: 2})
	require.NoError(t, err)

	_, first, err := f.engine.JoinRoom(f.ctx, member("u1"), "  "+strings.ToLower(room.Code)+" ", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.PlayerOrder)
	assert.False(t, first.IsAdmin)

	_, _, err = f.engine.JoinRoom(f.ctx, member("u2"), room.Code, "u2")
	assert.ErrorIs(t, err, ErrRoomFull)

	_, again, err := f.engine.JoinRoom(f.ctx, member("u1"), room.Code, "renamed")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, _, err = f.engine.JoinRoom(f.ctx, member("u2"), "ZZZZZZ", "u2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = f.engine.JoinRoom(f.ctx, member("u2"), "bad", "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinRoomAfterStart(t *testing.T) {
	f := newFixture(t)
	room, users := f.lobby(t, 2)
	_, err := f.engine.StartGame(f.ctx, users[0], room.ID)
	require.NoError(t, err)

	_, _, err = f.engine.JoinRoom(f.ctx, member("late"), room.Code, "late")
	assert.ErrorIs(t, err, ErrRoomClosed)

	online := false
	p := f.player(t, room.ID, users[1])
	require.NoError(t, f.store.SetPresence(f.ctx, p.ID, &online, f.clock()))

	_, back, err := f.engine.JoinRoom(f.ctx, users[1], room.Code, "u1")
	require.NoError(t, err)
	assert.True(t, back.IsOnline)
	assert.True(t, f.player(t, room.ID, users[1]).IsOnline)
}

func TestGuestPlayers(t *testing.T) {
	f := newFixture(t)
	room, _, err := f.engine.CreateRoom(f.ctx, member("u0"), CreateRoomInput{Name: "mixed", Nickname: "u0"})
	require.NoError(t, err)

	_, guest, err := f.engine.JoinRoom(f.ctx, identity.Guest("abc"), room.Code, "visitor")
	require.NoError(t, err)
	assert.True(t, guest.Guest)
	assert.Equal(t, "guest:abc", guest.UserID)
}

func TestLeaveRoom(t *testing.T) {
	f := newFixture(t)
	room, users := f.lobby(t, 3)

	require.NoError(t, f.engine.LeaveRoom(f.ctx, users[0], room.ID))

	players, err := f.store.ListPlayers(f.ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "u1", players[0].UserID)
	assert.Equal(t, 0, players[0].PlayerOrder)
	assert.True(t, players[0].IsAdmin)
	assert.Equal(t, "u2", players[1].UserID)
	assert.Equal(t, 1, players[1].PlayerOrder)
	assert.False(t, players[1].IsAdmin)

	_, err = f.store.GetRejoinCode(f.ctx, "u0")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, f.engine.LeaveRoom(f.ctx, users[1], room.ID))
	require.NoError(t, f.engine.LeaveRoom(f.ctx, users[2], room.ID))
	assert.Equal(t, db.RoomFinished, f.room(t, room.ID).Status)

	assert.ErrorIs(t, f.engine.LeaveRoom(f.ctx, users[2], room.ID), ErrNotFound)
}

func TestLeaveDuringGameKeepsPickerOrder(t *testing.T) {
	f := newFixture(t)
	room, users := f.lobby(t, 3)
	_, err := f.engine.StartGame(f.ctx, users[0], room.ID)
	require.NoError(t, err)
	_, err = f.engine.SelectWord(f.ctx, users[0], room.ID, "w-1")
	require.NoError(t, err)
	f.timeout(t, room.ID, users[0])
	_, err = f.engine.NextRound(f.ctx, users[0], room.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.room(t, room.ID).CurrentPickerOrder)

	require.NoError(t, f.engine.LeaveRoom(f.ctx, users[0], room.ID))
	assert.Equal(t, 0, f.room(t, room.ID).CurrentPickerOrder)
	assert.Equal(t, "u1", f.currentRound(t, room.ID).PickerID)
}

func TestSetReady(t *testing.T) {
	f := newFixture(t)
	room, users := f.lobby(t, 2)

	p, err := f.engine.SetReady(f.ctx, users[1], room.ID, false)
	require.NoError(t, err)
	assert.False(t, p.IsReady)
	assert.False(t, f.player(t, room.ID, users[1]).IsReady)

	_, err = f.engine.SetReady(f.ctx, member("stranger"), room.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejoin(t *testing.T) {
	f := newFixture(t)
	room, users := f.lobby(t, 2)

	got, p, err := f.engine.Rejoin(f.ctx, users[1])
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)
	assert.Equal(t, "u1", p.UserID)

	_, _, err = f.engine.Rejoin(f.ctx, member("nobody"))
	assert.ErrorIs(t, err, ErrNotFound)

	// A pointer to a finished room is dropped.
	finished := f.room(t, room.ID)
	finished.Status = db.RoomFinished
	require.NoError(t, f.store.UpdateRoom(f.ctx, finished))
	_, _, err = f.engine.Rejoin(f.ctx, users[1])
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.store.GetRejoinCode(f.ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPublicRooms(t *testing.T) {
	f := newFixture(t)
	open, _, err := f.engine.CreateRoom(f.ctx, member("a"), CreateRoomInput{Name: "open", Nickname: "a", Public: true})
	require.NoError(t, err)
	_, _, err = f.engine.JoinRoom(f.ctx, member("b"), open.Code, "b")
	require.NoError(t, err)
	_, _, err = f.engine.CreateRoom(f.ctx, member("c"), CreateRoomInput{Name: "secret", Nickname: "c"})
	require.NoError(t, err)

	rooms, err := f.engine.PublicRooms(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, open.ID, rooms[0].ID)
	assert.Equal(t, 2, rooms[0].PlayerCount)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "AB12CD", NormalizeCode(" ab12cd\n"))
	assert.True(t, ValidCode("AB12CD"))
	assert.False(t, ValidCode("AB12C"))
	assert.False(t, ValidCode("AB-2CD"))
	for i := 0; i < 20; i++ {
		code, err := newJoinCode()
		require.NoError(t, err)
		assert.True(t, ValidCode(code), code)
	}
}
