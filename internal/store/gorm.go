package store

import (
	"context"
	"errors"
	"time"

	"hintparty/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm is the Postgres-backed store.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(conn *gorm.DB) *Gorm {
	return &Gorm{db: conn}
}

func (g *Gorm) conn(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (g *Gorm) CreateRoom(ctx context.Context, room *db.Room) error {
	return translate(g.conn(ctx).Create(room).Error)
}

func (g *Gorm) GetRoom(ctx context.Context, id string) (*db.Room, error) {
	var room db.Room
	if err := g.conn(ctx).Where("id = ?", id).First(&room).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (g *Gorm) GetRoomByCode(ctx context.Context, code string) (*db.Room, error) {
	var room db.Room
	if err := g.conn(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (g *Gorm) UpdateRoom(ctx context.Context, room *db.Room) error {
	return translate(g.conn(ctx).Model(room).Select(
		"name", "is_public", "status", "current_round", "current_picker_order", "max_players", "updated_at",
	).Updates(room).Error)
}

func (g *Gorm) ListRooms(ctx context.Context, filter RoomFilter) ([]db.Room, error) {
	query := g.conn(ctx).Model(&db.Room{})
	if filter.Public != nil {
		query = query.Where("is_public = ?", *filter.Public)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Finalized != nil {
		query = query.Where("finalized = ?", *filter.Finalized)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rooms []db.Room
	if err := query.Order("created_at desc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (g *Gorm) FinalizeRoom(ctx context.Context, roomID string) (bool, error) {
	result := g.conn(ctx).Model(&db.Room{}).
		Where("id = ? AND finalized = ?", roomID, false).
		Update("finalized", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (g *Gorm) CreatePlayer(ctx context.Context, player *db.Player) error {
	return translate(g.conn(ctx).Create(player).Error)
}

func (g *Gorm) GetPlayer(ctx context.Context, roomID, userID string) (*db.Player, error) {
	var player db.Player
	if err := g.conn(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).First(&player).Error; err != nil {
		return nil, translate(err)
	}
	return &player, nil
}

func (g *Gorm) ListPlayers(ctx context.Context, roomID string) ([]db.Player, error) {
	var players []db.Player
	if err := g.conn(ctx).Where("room_id = ?", roomID).Order("player_order asc").Find(&players).Error; err != nil {
		return nil, err
	}
	return players, nil
}

func (g *Gorm) CountPlayers(ctx context.Context, roomIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(roomIDs))
	if len(roomIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		RoomID string
		Total  int
	}
	err := g.conn(ctx).Model(&db.Player{}).
		Select("room_id, count(*) as total").
		Where("room_id IN ?", roomIDs).
		Group("room_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, id := range roomIDs {
		counts[id] = 0
	}
	for _, row := range rows {
		counts[row.RoomID] = row.Total
	}
	return counts, nil
}

func (g *Gorm) DeletePlayer(ctx context.Context, playerID string) error {
	return g.conn(ctx).Where("id = ?", playerID).Delete(&db.Player{}).Error
}

func (g *Gorm) updatePlayer(ctx context.Context, playerID string, values map[string]any) error {
	values["updated_at"] = time.Now().UTC()
	result := g.conn(ctx).Model(&db.Player{}).Where("id = ?", playerID).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) SetPlayerReady(ctx context.Context, playerID string, ready bool) error {
	return g.updatePlayer(ctx, playerID, map[string]any{"is_ready": ready})
}

func (g *Gorm) SetPlayerSeat(ctx context.Context, playerID string, order int, admin bool) error {
	return g.updatePlayer(ctx, playerID, map[string]any{"player_order": order, "is_admin": admin})
}

func (g *Gorm) SetPresence(ctx context.Context, playerID string, online *bool, seen time.Time) error {
	values := map[string]any{"last_seen": seen}
	if online != nil {
		values["is_online"] = *online
	}
	return g.updatePlayer(ctx, playerID, values)
}

func (g *Gorm) AddPlayerScore(ctx context.Context, playerID string, delta int) error {
	return g.updatePlayer(ctx, playerID, map[string]any{"score": gorm.Expr("score + ?", delta)})
}

func (g *Gorm) CreateRound(ctx context.Context, round *db.Round) error {
	return translate(g.conn(ctx).Create(round).Error)
}

func (g *Gorm) GetRound(ctx context.Context, id string) (*db.Round, error) {
	var round db.Round
	if err := g.conn(ctx).Where("id = ?", id).First(&round).Error; err != nil {
		return nil, translate(err)
	}
	return &round, nil
}

func (g *Gorm) GetRoundByNumber(ctx context.Context, roomID string, number int) (*db.Round, error) {
	var round db.Round
	if err := g.conn(ctx).Where("room_id = ? AND round_number = ?", roomID, number).First(&round).Error; err != nil {
		return nil, translate(err)
	}
	return &round, nil
}

func (g *Gorm) ListRounds(ctx context.Context, roomID string) ([]db.Round, error) {
	var rounds []db.Round
	if err := g.conn(ctx).Where("room_id = ?", roomID).Order("round_number asc").Find(&rounds).Error; err != nil {
		return nil, err
	}
	return rounds, nil
}

func (g *Gorm) UpdateRound(ctx context.Context, round *db.Round) error {
	return translate(g.conn(ctx).Model(round).Select(
		"word", "word_en", "category", "category_en", "word_length", "word_length_en",
		"status", "started_at", "ended_at", "end_reason", "updated_at",
	).Updates(round).Error)
}

func (g *Gorm) EndRound(ctx context.Context, roundID, reason string, at time.Time) (bool, error) {
	result := g.conn(ctx).Model(&db.Round{}).
		Where("id = ? AND status <> ?", roundID, db.RoundEnded).
		Updates(map[string]any{
			"status":     db.RoundEnded,
			"end_reason": reason,
			"ended_at":   at,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (g *Gorm) MarkPickerScored(ctx context.Context, roundID string) (bool, error) {
	result := g.conn(ctx).Model(&db.Round{}).
		Where("id = ? AND picker_scored = ?", roundID, false).
		Update("picker_scored", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (g *Gorm) CreateGuess(ctx context.Context, guess *db.Guess) error {
	return translate(g.conn(ctx).Create(guess).Error)
}

func (g *Gorm) ListGuesses(ctx context.Context, roundID string) ([]db.Guess, error) {
	var guesses []db.Guess
	if err := g.conn(ctx).Where("round_id = ?", roundID).Order("guessed_at asc").Find(&guesses).Error; err != nil {
		return nil, err
	}
	return guesses, nil
}

func (g *Gorm) ListHintTypes(ctx context.Context) ([]db.HintType, error) {
	var types []db.HintType
	err := g.conn(ctx).
		Preload("Options", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order asc")
		}).
		Order("sort_order asc").
		Find(&types).Error
	if err != nil {
		return nil, err
	}
	return types, nil
}

func (g *Gorm) GetHintOption(ctx context.Context, id string) (*db.HintOption, error) {
	var option db.HintOption
	if err := g.conn(ctx).Where("id = ?", id).First(&option).Error; err != nil {
		return nil, translate(err)
	}
	return &option, nil
}

func (g *Gorm) UpsertHintType(ctx context.Context, hintType *db.HintType) error {
	return g.conn(ctx).Transaction(func(tx *gorm.DB) error {
		record := *hintType
		record.Options = nil
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error; err != nil {
			return err
		}
		for i := range hintType.Options {
			option := hintType.Options[i]
			option.TypeID = hintType.ID
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&option).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Gorm) CreateHint(ctx context.Context, hint *db.RoundHint) error {
	return translate(g.conn(ctx).Omit(clause.Associations).Create(hint).Error)
}

func (g *Gorm) UpdateHintOption(ctx context.Context, hintID, optionID string, at time.Time) error {
	result := g.conn(ctx).Model(&db.RoundHint{}).Where("id = ?", hintID).Updates(map[string]any{
		"hint_option_id": optionID,
		"updated_at":     at,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) ListHints(ctx context.Context, roundID string) ([]db.RoundHint, error) {
	var hints []db.RoundHint
	err := g.conn(ctx).
		Preload("HintType").
		Preload("HintOption").
		Where("round_id = ?", roundID).
		Order("slot_number asc").
		Find(&hints).Error
	if err != nil {
		return nil, err
	}
	return hints, nil
}

func (g *Gorm) UpsertRating(ctx context.Context, rating *db.RoundRating) error {
	return g.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "picker_id", "updated_at"}),
	}).Create(rating).Error
}

func (g *Gorm) GetRating(ctx context.Context, roundID, voterID string) (*db.RoundRating, error) {
	var rating db.RoundRating
	if err := g.conn(ctx).Where("round_id = ? AND voter_id = ?", roundID, voterID).First(&rating).Error; err != nil {
		return nil, translate(err)
	}
	return &rating, nil
}

func (g *Gorm) ListRatings(ctx context.Context, roundIDs []string) ([]db.RoundRating, error) {
	if len(roundIDs) == 0 {
		return nil, nil
	}
	var ratings []db.RoundRating
	if err := g.conn(ctx).Where("round_id IN ?", roundIDs).Order("created_at asc").Find(&ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}

func (g *Gorm) SavePickerStats(ctx context.Context, stats []db.PickerStat) error {
	if len(stats) == 0 {
		return nil
	}
	return g.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "picker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "hearts", "poops", "updated_at"}),
	}).Create(&stats).Error
}

func (g *Gorm) ListPickerStats(ctx context.Context, roomID string) ([]db.PickerStat, error) {
	var stats []db.PickerStat
	if err := g.conn(ctx).Where("room_id = ?", roomID).Order("picker_id asc").Find(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (g *Gorm) EnsureUser(ctx context.Context, userID string) error {
	user := db.User{ID: userID}
	return g.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error
}

func (g *Gorm) GetUser(ctx context.Context, userID string) (*db.User, error) {
	var user db.User
	if err := g.conn(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (g *Gorm) AddUserTotals(ctx context.Context, userID string, score, games int) error {
	result := g.conn(ctx).Model(&db.User{}).Where("id = ?", userID).Updates(map[string]any{
		"total_score":  gorm.Expr("total_score + ?", score),
		"games_played": gorm.Expr("games_played + ?", games),
		"updated_at":   time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) UpsertWord(ctx context.Context, word *db.Word) error {
	return g.conn(ctx).Where(db.Word{Word: word.Word, WordEn: word.WordEn}).
		Assign(db.Word{Category: word.Category, CategoryEn: word.CategoryEn, Length: word.Length}).
		FirstOrCreate(word).Error
}

func (g *Gorm) GetWord(ctx context.Context, id string) (*db.Word, error) {
	var word db.Word
	if err := g.conn(ctx).Where("id = ?", id).First(&word).Error; err != nil {
		return nil, translate(err)
	}
	return &word, nil
}

func (g *Gorm) ListWords(ctx context.Context, limit int) ([]db.Word, error) {
	query := g.conn(ctx).Model(&db.Word{})
	if limit > 0 {
		// Sample across the whole pool rather than the oldest rows.
		query = query.Order("random()").Limit(limit)
	}
	var words []db.Word
	if err := query.Find(&words).Error; err != nil {
		return nil, err
	}
	return words, nil
}

func (g *Gorm) SetRejoinCode(ctx context.Context, userID, code string) error {
	record := db.Session{ID: userID, RoomCode: code, UpdatedAt: time.Now().UTC()}
	return g.conn(ctx).Save(&record).Error
}

func (g *Gorm) GetRejoinCode(ctx context.Context, userID string) (string, error) {
	var record db.Session
	if err := g.conn(ctx).Where("id = ?", userID).First(&record).Error; err != nil {
		return "", translate(err)
	}
	if record.RoomCode == "" {
		return "", ErrNotFound
	}
	return record.RoomCode, nil
}

func (g *Gorm) ClearRejoinCode(ctx context.Context, userID string) error {
	return g.conn(ctx).Where("id = ?", userID).Delete(&db.Session{}).Error
}

func (g *Gorm) AppendEvent(ctx context.Context, event *db.Event) error {
	return g.conn(ctx).Create(event).Error
}

func (g *Gorm) ListEvents(ctx context.Context, roomID string, limit int) ([]db.Event, error) {
	query := g.conn(ctx).Where("room_id = ?", roomID).Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []db.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}
