package game

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"hintparty/internal/db"
	"hintparty/internal/identity"
	"hintparty/internal/metrics"
	"hintparty/internal/store"

	"github.com/google/uuid"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 5
)

func newJoinCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}

// NormalizeCode trims and upper-cases a join code typed by a user.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

type CreateRoomInput struct {
	Name       string
	Nickname   string
	Public     bool
	MaxPlayers int
}

type RoomSummary struct {
	db.Room
	PlayerCount int `json:"player_count"`
}

func (e *Engine) CreateRoom(ctx context.Context, who identity.Identity, in CreateRoomInput) (*db.Room, *db.Player, error) {
	name := strings.TrimSpace(in.Name)
	nickname := strings.TrimSpace(in.Nickname)
	if !who.Valid() || name == "" || nickname == "" {
		return nil, nil, e.reject("create_room", "name and nickname are required")
	}
	maxPlayers := in.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = e.opts.MaxPlayers
	}
	if maxPlayers < minPlayersToStart {
		maxPlayers = minPlayersToStart
	}
	if maxPlayers > maxRoomPlayers {
		maxPlayers = maxRoomPlayers
	}

	room := &db.Room{
		ID:         uuid.NewString(),
		Name:       name,
		IsPublic:   in.Public,
		Status:     db.RoomWaiting,
		MaxPlayers: maxPlayers,
		CreatedBy:  who.UserID,
	}
	var err error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		if room.Code, err = newJoinCode(); err != nil {
			return nil, nil, err
		}
		err = e.store.CreateRoom(ctx, room)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create room: %w", err)
	}

	now := e.opts.Now()
	player := &db.Player{
		ID:          uuid.NewString(),
		RoomID:      room.ID,
		UserID:      who.UserID,
		Nickname:    nickname,
		IsAdmin:     true,
		PlayerOrder: 0,
		IsOnline:    true,
		LastSeen:    now,
		Guest:       !who.SignedIn,
		JoinedAt:    now,
	}
	if err := e.store.CreatePlayer(ctx, player); err != nil {
		return nil, nil, fmt.Errorf("create admin player: %w", err)
	}
	e.rememberRoom(ctx, who, room.Code)
	metrics.RoomsCreated.Inc()
	e.log.Info().Str("room_id", room.ID).Str("code", room.Code).Str("user_id", who.UserID).Msg("room created")
	if room.IsPublic {
		e.publishLobby(ctx, EventRoomCreated, RoomSummary{Room: *room, PlayerCount: 1})
	}
	e.recordEvent(ctx, room.ID, who.UserID, PlayerJoined{Player: *player})
	return room, player, nil
}

// JoinRoom admits a user by join code. Existing members are let back in
// whatever the room's state; new users only join waiting rooms with a free seat.
func (e *Engine) JoinRoom(ctx context.Context, who identity.Identity, code, nickname string) (*db.Room, *db.Player, error) {
	code = NormalizeCode(code)
	nickname = strings.TrimSpace(nickname)
	if !who.Valid() || nickname == "" {
		return nil, nil, e.reject("join_room", "nickname is required")
	}
	if !ValidCode(code) {
		return nil, nil, ErrNotFound
	}
	room, err := e.store.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	unlock := e.lockRoom(room.ID)
	defer unlock()

	room, err = e.store.GetRoom(ctx, room.ID)
	if err != nil {
		return nil, nil, err
	}
	players, err := e.store.ListPlayers(ctx, room.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range players {
		if p.UserID == who.UserID {
			player, err := e.markOnline(ctx, room.ID, p)
			if err != nil {
				return nil, nil, err
			}
			e.rememberRoom(ctx, who, room.Code)
			return room, player, nil
		}
	}
	if room.Status != db.RoomWaiting {
		return nil, nil, ErrRoomClosed
	}
	if len(players) >= room.MaxPlayers {
		return nil, nil, ErrRoomFull
	}

	now := e.opts.Now()
	player := &db.Player{
		ID:          uuid.NewString(),
		RoomID:      room.ID,
		UserID:      who.UserID,
		Nickname:    nickname,
		PlayerOrder: len(players),
		IsOnline:    true,
		LastSeen:    now,
		Guest:       !who.SignedIn,
		JoinedAt:    now,
	}
	if err := e.store.CreatePlayer(ctx, player); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, nil, e.reject("join_room", "already joined")
		}
		return nil, nil, err
	}
	e.rememberRoom(ctx, who, room.Code)
	e.log.Info().Str("room_id", room.ID).Str("user_id", who.UserID).Int("order", player.PlayerOrder).Msg("player joined")
	e.emit(ctx, room.ID, who.UserID, PlayerJoined{Player: *player})
	if room.IsPublic {
		e.publishLobby(ctx, EventRoomPlayerCount, map[string]any{"room_id": room.ID, "player_count": len(players) + 1})
	}
	return room, player, nil
}

func (e *Engine) markOnline(ctx context.Context, roomID string, p db.Player) (*db.Player, error) {
	online := true
	now := e.opts.Now()
	if err := e.store.SetPresence(ctx, p.ID, &online, now); err != nil {
		return nil, err
	}
	p.IsOnline = true
	p.LastSeen = now
	e.emit(ctx, roomID, p.UserID, PlayerUpdated{Player: p})
	return &p, nil
}

func (e *Engine) rememberRoom(ctx context.Context, who identity.Identity, code string) {
	if err := e.store.SetRejoinCode(ctx, who.UserID, code); err != nil {
		e.log.Warn().Err(err).Str("user_id", who.UserID).Msg("save rejoin code failed")
	}
}

// LeaveRoom removes the caller, closes the gap in player_order and hands the
// admin role to the next player when the admin leaves.
func (e *Engine) LeaveRoom(ctx context.Context, who identity.Identity, roomID string) error {
	unlock := e.lockRoom(roomID)
	defer unlock()

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	leaver, err := e.store.GetPlayer(ctx, roomID, who.UserID)
	if err != nil {
		return err
	}
	if err := e.store.DeletePlayer(ctx, leaver.ID); err != nil {
		return err
	}
	if err := e.store.ClearRejoinCode(ctx, who.UserID); err != nil {
		e.log.Warn().Err(err).Str("user_id", who.UserID).Msg("clear rejoin code failed")
	}
	e.emit(ctx, roomID, who.UserID, PlayerLeft{PlayerID: leaver.ID})

	remaining, err := e.store.ListPlayers(ctx, roomID)
	if err != nil {
		return err
	}
	hasAdmin := false
	for _, p := range remaining {
		hasAdmin = hasAdmin || p.IsAdmin
	}
	for i, p := range remaining {
		admin := p.IsAdmin || (!hasAdmin && i == 0)
		if p.PlayerOrder == i && p.IsAdmin == admin {
			continue
		}
		if err := e.store.SetPlayerSeat(ctx, p.ID, i, admin); err != nil {
			return err
		}
		p.PlayerOrder = i
		p.IsAdmin = admin
		e.emit(ctx, roomID, p.UserID, PlayerUpdated{Player: p})
	}

	roomChanged := false
	switch {
	case len(remaining) == 0 && room.Status != db.RoomFinished:
		room.Status = db.RoomFinished
		roomChanged = true
	case room.Status == db.RoomPlaying:
		// The next picker is whoever now sits in the leaving picker's seat.
		if leaver.PlayerOrder <= room.CurrentPickerOrder {
			room.CurrentPickerOrder--
			roomChanged = true
		}
		if room.CurrentPickerOrder < 0 {
			room.CurrentPickerOrder = len(remaining) - 1
		}
		if room.CurrentPickerOrder >= len(remaining) {
			room.CurrentPickerOrder = 0
			roomChanged = true
		}
	}
	if roomChanged {
		if err := e.store.UpdateRoom(ctx, room); err != nil {
			return err
		}
		e.emit(ctx, roomID, who.UserID, RoomUpdated{Room: *room})
	}
	if room.Status == db.RoomPlaying && len(remaining) > 0 {
		if err := e.settleAfterLeave(ctx, room, who.UserID, remaining); err != nil {
			return err
		}
	}
	e.log.Info().Str("room_id", roomID).Str("user_id", who.UserID).Int("remaining", len(remaining)).Msg("player left")
	if room.IsPublic {
		e.publishLobby(ctx, EventRoomPlayerCount, map[string]any{"room_id": roomID, "player_count": len(remaining)})
	}
	return nil
}

func (e *Engine) SetReady(ctx context.Context, who identity.Identity, roomID string, ready bool) (*db.Player, error) {
	unlock := e.lockRoom(roomID)
	defer unlock()

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != db.RoomWaiting {
		return nil, e.reject("set_ready", "room is not waiting")
	}
	player, err := e.store.GetPlayer(ctx, roomID, who.UserID)
	if err != nil {
		return nil, err
	}
	if player.IsReady == ready {
		return player, nil
	}
	if err := e.store.SetPlayerReady(ctx, player.ID, ready); err != nil {
		return nil, err
	}
	player.IsReady = ready
	e.emit(ctx, roomID, who.UserID, PlayerUpdated{Player: *player})
	return player, nil
}

// Rejoin puts a user back into the room they were last in. The saved
// pointer is dropped when that room is gone, finished or no longer has them.
func (e *Engine) Rejoin(ctx context.Context, who identity.Identity) (*db.Room, *db.Player, error) {
	code, err := e.store.GetRejoinCode(ctx, who.UserID)
	if err != nil {
		return nil, nil, err
	}
	forget := func() error {
		if err := e.store.ClearRejoinCode(ctx, who.UserID); err != nil {
			e.log.Warn().Err(err).Str("user_id", who.UserID).Msg("clear rejoin code failed")
		}
		return ErrNotFound
	}
	room, err := e.store.GetRoomByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, forget()
	}
	if err != nil {
		return nil, nil, err
	}
	if room.Status == db.RoomFinished {
		return nil, nil, forget()
	}
	player, err := e.store.GetPlayer(ctx, room.ID, who.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, forget()
	}
	if err != nil {
		return nil, nil, err
	}
	unlock := e.lockRoom(room.ID)
	defer unlock()
	player, err = e.markOnline(ctx, room.ID, *player)
	if err != nil {
		return nil, nil, err
	}
	e.log.Info().Str("room_id", room.ID).Str("user_id", who.UserID).Msg("player rejoined")
	return room, player, nil
}

// PublicRooms lists joinable public rooms, newest first.
func (e *Engine) PublicRooms(ctx context.Context, limit int) ([]RoomSummary, error) {
	if limit <= 0 || limit > defaultRoomLimit {
		limit = defaultRoomLimit
	}
	public := true
	rooms, err := e.store.ListRooms(ctx, store.RoomFilter{Public: &public, Status: db.RoomWaiting, Limit: limit})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}
	counts, err := e.store.CountPlayers(ctx, ids)
	if err != nil {
		return nil, err
	}
	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, RoomSummary{Room: room, PlayerCount: counts[room.ID]})
	}
	return summaries, nil
}
