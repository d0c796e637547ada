package game

import (
	"context"
	"fmt"

	"hintparty/internal/db"
	"hintparty/internal/identity"
	"hintparty/internal/store"

	"github.com/google/uuid"
)

// RateRound records the caller's opinion of an ended round's word. A second
// rating by the same voter replaces the first.
func (e *Engine) RateRound(ctx context.Context, who identity.Identity, roomID, roundID, rating string) (*db.RoundRating, error) {
	if rating != db.RatingHeart && rating != db.RatingPoop {
		return nil, e.reject("rate_round", "unknown rating")
	}
	round, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.RoomID != roomID || round.Status != db.RoundEnded {
		return nil, e.reject("rate_round", "round has not ended")
	}
	if round.PickerID == who.UserID {
		return nil, e.reject("rate_round", "picker cannot rate own round")
	}
	if _, err := e.store.GetPlayer(ctx, roomID, who.UserID); err != nil {
		return nil, e.reject("rate_round", "caller is not a member")
	}
	record := &db.RoundRating{
		ID:       uuid.NewString(),
		RoundID:  round.ID,
		VoterID:  who.UserID,
		PickerID: round.PickerID,
		Rating:   rating,
	}
	if err := e.store.UpsertRating(ctx, record); err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	return record, nil
}

func (e *Engine) MyRating(ctx context.Context, who identity.Identity, roundID string) (*db.RoundRating, error) {
	return e.store.GetRating(ctx, roundID, who.UserID)
}

// PickerStats tallies hearts and poops per picker over a finished game, in
// the order the pickers played.
func (e *Engine) PickerStats(ctx context.Context, roomID string) ([]db.PickerStat, error) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != db.RoomFinished {
		return nil, e.reject("picker_stats", "room has not finished")
	}
	return e.tally(ctx, roomID)
}

func (e *Engine) tally(ctx context.Context, roomID string) ([]db.PickerStat, error) {
	rounds, err := e.store.ListRounds(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := e.store.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	nicknames := make(map[string]string, len(players))
	for _, p := range players {
		nicknames[p.UserID] = p.Nickname
	}

	ids := make([]string, 0, len(rounds))
	index := make(map[string]int)
	stats := make([]db.PickerStat, 0)
	for _, round := range rounds {
		ids = append(ids, round.ID)
		if _, ok := index[round.PickerID]; ok {
			continue
		}
		index[round.PickerID] = len(stats)
		stats = append(stats, db.PickerStat{
			RoomID:   roomID,
			PickerID: round.PickerID,
			Nickname: nicknames[round.PickerID],
		})
	}
	ratings, err := e.store.ListRatings(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range ratings {
		i, ok := index[r.PickerID]
		if !ok {
			continue
		}
		switch r.Rating {
		case db.RatingHeart:
			stats[i].Hearts++
		case db.RatingPoop:
			stats[i].Poops++
		}
	}
	return stats, nil
}

// BestWorst picks the best picker by hearts minus poops and the worst by
// poops minus hearts. Ties go to the earlier picker. Best is nil without any
// heart; worst is nil without any poop or when it is the top-ranked picker,
// shown or not.
func BestWorst(stats []db.PickerStat) (best, worst *db.PickerStat) {
	for i := range stats {
		if best == nil || stats[i].Hearts-stats[i].Poops > best.Hearts-best.Poops {
			best = &stats[i]
		}
		if worst == nil || stats[i].Poops-stats[i].Hearts > worst.Poops-worst.Hearts {
			worst = &stats[i]
		}
	}
	if worst != nil && (worst.Poops <= 0 || (best != nil && worst.PickerID == best.PickerID)) {
		worst = nil
	}
	if best != nil && best.Hearts <= 0 {
		best = nil
	}
	return best, worst
}

// FinalizeGame stores the picker stats of a finished room and counts the game
// for every signed-in member. It is safe to run more than once.
func (e *Engine) FinalizeGame(ctx context.Context, roomID string) error {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status != db.RoomFinished {
		return e.reject("finalize_game", "room has not finished")
	}
	stats, err := e.tally(ctx, roomID)
	if err != nil {
		return err
	}
	if err := e.store.SavePickerStats(ctx, stats); err != nil {
		return fmt.Errorf("save picker stats: %w", err)
	}
	first, err := e.store.FinalizeRoom(ctx, roomID)
	if err != nil || !first {
		return err
	}
	players, err := e.store.ListPlayers(ctx, roomID)
	if err != nil {
		return err
	}
	for _, p := range players {
		if p.Guest {
			continue
		}
		if err := e.store.EnsureUser(ctx, p.UserID); err != nil {
			return err
		}
		if err := e.store.AddUserTotals(ctx, p.UserID, 0, 1); err != nil {
			return err
		}
	}
	e.log.Info().Str("room_id", roomID).Int("pickers", len(stats)).Msg("game finalized")
	return nil
}

// PendingFinalization lists finished rooms whose post-game work has not run.
func (e *Engine) PendingFinalization(ctx context.Context, limit int) ([]string, error) {
	finalized := false
	rooms, err := e.store.ListRooms(ctx, store.RoomFilter{Status: db.RoomFinished, Finalized: &finalized, Limit: limit})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}
	return ids, nil
}
