package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"hintparty/internal/db"
)

// Memory keeps every collection in process. Returned records are copies.
type Memory struct {
	mu          sync.Mutex
	rooms       map[string]*db.Room
	players     map[string]*db.Player
	rounds      map[string]*db.Round
	guesses     map[string][]db.Guess
	hintTypes   map[string]*db.HintType
	hintOptions map[string]*db.HintOption
	hints       map[string]*db.RoundHint
	ratings     map[string]*db.RoundRating
	pickerStats map[string]map[string]db.PickerStat
	users       map[string]*db.User
	words       []db.Word
	sessions    map[string]string
	events      []db.Event
	nextEventID uint
}

func NewMemory() *Memory {
	return &Memory{
		rooms:       make(map[string]*db.Room),
		players:     make(map[string]*db.Player),
		rounds:      make(map[string]*db.Round),
		guesses:     make(map[string][]db.Guess),
		hintTypes:   make(map[string]*db.HintType),
		hintOptions: make(map[string]*db.HintOption),
		hints:       make(map[string]*db.RoundHint),
		ratings:     make(map[string]*db.RoundRating),
		pickerStats: make(map[string]map[string]db.PickerStat),
		users:       make(map[string]*db.User),
		sessions:    make(map[string]string),
		nextEventID: 1,
	}
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

func (m *Memory) CreateRoom(_ context.Context, room *db.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; ok {
		return ErrConflict
	}
	for _, existing := range m.rooms {
		if existing.Code == room.Code {
			return ErrConflict
		}
	}
	stamp(&room.CreatedAt)
	stamp(&room.UpdatedAt)
	copied := *room
	m.rooms[room.ID] = &copied
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id string) (*db.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *room
	return &copied, nil
}

func (m *Memory) GetRoomByCode(_ context.Context, code string) (*db.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range m.rooms {
		if room.Code == code {
			copied := *room
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateRoom(_ context.Context, room *db.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; !ok {
		return ErrNotFound
	}
	room.UpdatedAt = time.Now().UTC()
	copied := *room
	m.rooms[room.ID] = &copied
	return nil
}

func (m *Memory) ListRooms(_ context.Context, filter RoomFilter) ([]db.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		if filter.Public != nil && room.IsPublic != *filter.Public {
			continue
		}
		if filter.Status != "" && room.Status != filter.Status {
			continue
		}
		if filter.Finalized != nil && room.Finalized != *filter.Finalized {
			continue
		}
		list = append(list, *room)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (m *Memory) FinalizeRoom(_ context.Context, roomID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return false, ErrNotFound
	}
	if room.Finalized {
		return false, nil
	}
	room.Finalized = true
	return true, nil
}

func (m *Memory) CreatePlayer(_ context.Context, player *db.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.players {
		if existing.RoomID == player.RoomID && existing.UserID == player.UserID {
			return ErrConflict
		}
	}
	stamp(&player.JoinedAt)
	stamp(&player.LastSeen)
	stamp(&player.UpdatedAt)
	copied := *player
	m.players[player.ID] = &copied
	return nil
}

func (m *Memory) GetPlayer(_ context.Context, roomID, userID string) (*db.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, player := range m.players {
		if player.RoomID == roomID && player.UserID == userID {
			copied := *player
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListPlayers(_ context.Context, roomID string) ([]db.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.Player, 0)
	for _, player := range m.players {
		if player.RoomID == roomID {
			list = append(list, *player)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].PlayerOrder < list[j].PlayerOrder
	})
	return list, nil
}

func (m *Memory) CountPlayers(_ context.Context, roomIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int, len(roomIDs))
	for _, id := range roomIDs {
		counts[id] = 0
	}
	for _, player := range m.players {
		if _, ok := counts[player.RoomID]; ok {
			counts[player.RoomID]++
		}
	}
	return counts, nil
}

func (m *Memory) DeletePlayer(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, playerID)
	return nil
}

func (m *Memory) updatePlayer(playerID string, update func(player *db.Player)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	player, ok := m.players[playerID]
	if !ok {
		return ErrNotFound
	}
	update(player)
	player.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SetPlayerReady(_ context.Context, playerID string, ready bool) error {
	return m.updatePlayer(playerID, func(player *db.Player) {
		player.IsReady = ready
	})
}

func (m *Memory) SetPlayerSeat(_ context.Context, playerID string, order int, admin bool) error {
	return m.updatePlayer(playerID, func(player *db.Player) {
		player.PlayerOrder = order
		player.IsAdmin = admin
	})
}

func (m *Memory) SetPresence(_ context.Context, playerID string, online *bool, seen time.Time) error {
	return m.updatePlayer(playerID, func(player *db.Player) {
		if online != nil {
			player.IsOnline = *online
		}
		player.LastSeen = seen
	})
}

func (m *Memory) AddPlayerScore(_ context.Context, playerID string, delta int) error {
	return m.updatePlayer(playerID, func(player *db.Player) {
		player.Score += delta
	})
}

func (m *Memory) CreateRound(_ context.Context, round *db.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rounds {
		if existing.RoomID == round.RoomID && existing.RoundNumber == round.RoundNumber {
			return ErrConflict
		}
	}
	stamp(&round.CreatedAt)
	stamp(&round.UpdatedAt)
	copied := *round
	m.rounds[round.ID] = &copied
	return nil
}

func (m *Memory) GetRound(_ context.Context, id string) (*db.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	round, ok := m.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *round
	return &copied, nil
}

func (m *Memory) GetRoundByNumber(_ context.Context, roomID string, number int) (*db.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, round := range m.rounds {
		if round.RoomID == roomID && round.RoundNumber == number {
			copied := *round
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListRounds(_ context.Context, roomID string) ([]db.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.Round, 0)
	for _, round := range m.rounds {
		if round.RoomID == roomID {
			list = append(list, *round)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].RoundNumber < list[j].RoundNumber
	})
	return list, nil
}

func (m *Memory) UpdateRound(_ context.Context, round *db.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rounds[round.ID]; !ok {
		return ErrNotFound
	}
	round.UpdatedAt = time.Now().UTC()
	copied := *round
	m.rounds[round.ID] = &copied
	return nil
}

func (m *Memory) EndRound(_ context.Context, roundID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	round, ok := m.rounds[roundID]
	if !ok {
		return false, ErrNotFound
	}
	if round.Status == db.RoundEnded {
		return false, nil
	}
	round.Status = db.RoundEnded
	round.EndReason = reason
	ended := at
	round.EndedAt = &ended
	round.UpdatedAt = at
	return true, nil
}

func (m *Memory) MarkPickerScored(_ context.Context, roundID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	round, ok := m.rounds[roundID]
	if !ok {
		return false, ErrNotFound
	}
	if round.PickerScored {
		return false, nil
	}
	round.PickerScored = true
	return true, nil
}

func (m *Memory) CreateGuess(_ context.Context, guess *db.Guess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&guess.GuessedAt)
	m.guesses[guess.RoundID] = append(m.guesses[guess.RoundID], *guess)
	return nil
}

func (m *Memory) ListGuesses(_ context.Context, roundID string) ([]db.Guess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]db.Guess(nil), m.guesses[roundID]...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].GuessedAt.Before(list[j].GuessedAt)
	})
	if list == nil {
		list = []db.Guess{}
	}
	return list, nil
}

func (m *Memory) ListHintTypes(_ context.Context) ([]db.HintType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.HintType, 0, len(m.hintTypes))
	for _, hintType := range m.hintTypes {
		copied := *hintType
		copied.Options = m.optionsFor(hintType.ID)
		list = append(list, copied)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].SortOrder < list[j].SortOrder
	})
	return list, nil
}

func (m *Memory) optionsFor(typeID string) []db.HintOption {
	options := make([]db.HintOption, 0)
	for _, option := range m.hintOptions {
		if option.TypeID == typeID {
			options = append(options, *option)
		}
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].SortOrder < options[j].SortOrder
	})
	return options
}

func (m *Memory) GetHintOption(_ context.Context, id string) (*db.HintOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	option, ok := m.hintOptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *option
	return &copied, nil
}

func (m *Memory) UpsertHintType(_ context.Context, hintType *db.HintType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *hintType
	copied.Options = nil
	m.hintTypes[hintType.ID] = &copied
	for _, option := range hintType.Options {
		option.TypeID = hintType.ID
		m.hintOptions[option.ID] = &option
	}
	return nil
}

func (m *Memory) CreateHint(_ context.Context, hint *db.RoundHint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.hints {
		if existing.RoundID != hint.RoundID {
			continue
		}
		if existing.SlotNumber == hint.SlotNumber || existing.HintTypeID == hint.HintTypeID {
			return ErrConflict
		}
	}
	stamp(&hint.CreatedAt)
	stamp(&hint.UpdatedAt)
	copied := *hint
	copied.HintType = nil
	copied.HintOption = nil
	m.hints[hint.ID] = &copied
	return nil
}

func (m *Memory) UpdateHintOption(_ context.Context, hintID, optionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hint, ok := m.hints[hintID]
	if !ok {
		return ErrNotFound
	}
	hint.HintOptionID = optionID
	hint.UpdatedAt = at
	return nil
}

func (m *Memory) ListHints(_ context.Context, roundID string) ([]db.RoundHint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.RoundHint, 0)
	for _, hint := range m.hints {
		if hint.RoundID != roundID {
			continue
		}
		copied := *hint
		if hintType, ok := m.hintTypes[hint.HintTypeID]; ok {
			typeCopy := *hintType
			copied.HintType = &typeCopy
		}
		if option, ok := m.hintOptions[hint.HintOptionID]; ok {
			optionCopy := *option
			copied.HintOption = &optionCopy
		}
		list = append(list, copied)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].SlotNumber < list[j].SlotNumber
	})
	return list, nil
}

func ratingKey(roundID, voterID string) string {
	return roundID + "|" + voterID
}

func (m *Memory) UpsertRating(_ context.Context, rating *db.RoundRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ratingKey(rating.RoundID, rating.VoterID)
	now := time.Now().UTC()
	if existing, ok := m.ratings[key]; ok {
		existing.Rating = rating.Rating
		existing.PickerID = rating.PickerID
		existing.UpdatedAt = now
		*rating = *existing
		return nil
	}
	stamp(&rating.CreatedAt)
	stamp(&rating.UpdatedAt)
	copied := *rating
	m.ratings[key] = &copied
	return nil
}

func (m *Memory) GetRating(_ context.Context, roundID, voterID string) (*db.RoundRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rating, ok := m.ratings[ratingKey(roundID, voterID)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *rating
	return &copied, nil
}

func (m *Memory) ListRatings(_ context.Context, roundIDs []string) ([]db.RoundRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]struct{}, len(roundIDs))
	for _, id := range roundIDs {
		wanted[id] = struct{}{}
	}
	list := make([]db.RoundRating, 0)
	for _, rating := range m.ratings {
		if _, ok := wanted[rating.RoundID]; ok {
			list = append(list, *rating)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (m *Memory) SavePickerStats(_ context.Context, stats []db.PickerStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stat := range stats {
		room := m.pickerStats[stat.RoomID]
		if room == nil {
			room = make(map[string]db.PickerStat)
			m.pickerStats[stat.RoomID] = room
		}
		stamp(&stat.UpdatedAt)
		room[stat.PickerID] = stat
	}
	return nil
}

func (m *Memory) ListPickerStats(_ context.Context, roomID string) ([]db.PickerStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.PickerStat, 0, len(m.pickerStats[roomID]))
	for _, stat := range m.pickerStats[roomID] {
		list = append(list, stat)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].PickerID < list[j].PickerID
	})
	return list, nil
}

func (m *Memory) EnsureUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; ok {
		return nil
	}
	now := time.Now().UTC()
	m.users[userID] = &db.User{ID: userID, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (m *Memory) GetUser(_ context.Context, userID string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *Memory) AddUserTotals(_ context.Context, userID string, score, games int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.TotalScore += score
	user.GamesPlayed += games
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) UpsertWord(_ context.Context, word *db.Word) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.words {
		if m.words[i].Word == word.Word && m.words[i].WordEn == word.WordEn {
			word.ID = m.words[i].ID
			m.words[i] = *word
			return nil
		}
	}
	m.words = append(m.words, *word)
	return nil
}

func (m *Memory) GetWord(_ context.Context, id string) (*db.Word, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, word := range m.words {
		if word.ID == id {
			copied := word
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListWords(_ context.Context, limit int) ([]db.Word, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]db.Word(nil), m.words...)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *Memory) SetRejoinCode(_ context.Context, userID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = code
	return nil
}

func (m *Memory) GetRejoinCode(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.sessions[userID]
	if !ok || code == "" {
		return "", ErrNotFound
	}
	return code, nil
}

func (m *Memory) ClearRejoinCode(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func (m *Memory) AppendEvent(_ context.Context, event *db.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = m.nextEventID
	m.nextEventID++
	stamp(&event.CreatedAt)
	m.events = append(m.events, *event)
	return nil
}

func (m *Memory) ListEvents(_ context.Context, roomID string, limit int) ([]db.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.Event, 0)
	for _, event := range m.events {
		if event.RoomID == roomID {
			list = append(list, event)
		}
	}
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list, nil
}
