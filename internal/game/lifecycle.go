package game

import (
	"context"
	"fmt"
	"strings"

	"hintparty/internal/db"
	"hintparty/internal/identity"
	"hintparty/internal/metrics"

	"github.com/google/uuid"
)

// system is the actor used by server-side timers.
var system = identity.Identity{}

const maxGuessLength = 120

func (e *Engine) currentRound(ctx context.Context, room *db.Room) (*db.Round, error) {
	if room.Status != db.RoomPlaying || room.CurrentRound == 0 {
		return nil, nil
	}
	return e.store.GetRoundByNumber(ctx, room.ID, room.CurrentRound)
}

func isAdmin(players []db.Player, userID string) bool {
	for _, p := range players {
		if p.UserID == userID {
			return p.IsAdmin
		}
	}
	return false
}

// drawWords picks the candidates offered to a picker from a sample of the pool.
func (e *Engine) drawWords(ctx context.Context) ([]db.Word, error) {
	pool, err := e.store.ListWords(ctx, wordPoolSample)
	if err != nil {
		return nil, err
	}
	if len(pool) < e.opts.WordChoices {
		return nil, nil
	}
	e.opts.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:e.opts.WordChoices], nil
}

// openRound creates a selecting round and offers word candidates to its picker.
func (e *Engine) openRound(ctx context.Context, room *db.Room, number int, picker db.Player, words []db.Word) (*db.Round, error) {
	round := &db.Round{
		ID:          uuid.NewString(),
		RoomID:      room.ID,
		RoundNumber: number,
		PickerID:    picker.UserID,
		Status:      db.RoundSelecting,
	}
	if err := e.store.CreateRound(ctx, round); err != nil {
		return nil, fmt.Errorf("create round %d: %w", number, err)
	}
	offer := WordChoicesOffered{RoundID: round.ID, PickerID: picker.UserID, Words: words}
	e.choicesMu.Lock()
	e.choices[round.ID] = offer
	e.choicesMu.Unlock()

	room.Status = db.RoomPlaying
	room.CurrentRound = number
	room.CurrentPickerOrder = picker.PlayerOrder
	if err := e.store.UpdateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("advance room: %w", err)
	}
	e.emit(ctx, room.ID, "", RoomUpdated{Room: *room})
	e.emit(ctx, room.ID, picker.UserID, RoundStarted{Round: *round})
	e.emit(ctx, room.ID, picker.UserID, offer)
	return round, nil
}

// PendingWordChoices returns the candidates offered for a round, but only to
// its picker and only while the round is selecting.
func (e *Engine) PendingWordChoices(roundID, userID string) []db.Word {
	e.choicesMu.Lock()
	defer e.choicesMu.Unlock()
	offer, ok := e.choices[roundID]
	if !ok || offer.PickerID != userID {
		return nil
	}
	return append([]db.Word(nil), offer.Words...)
}

func (e *Engine) StartGame(ctx context.Context, who identity.Identity, roomID string) (*db.Round, error) {
	unlock := e.lockRoom(roomID)
	defer unlock()

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != db.RoomWaiting {
		return nil, e.reject("start_game", "room is not waiting")
	}
	players, err := e.store.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !isAdmin(players, who.UserID) {
		return nil, e.reject("start_game", "caller is not admin")
	}
	if len(players) < minPlayersToStart {
		return nil, e.reject("start_game", "not enough players")
	}
	for _, p := range players {
		if !p.IsAdmin && !p.IsReady {
			return nil, e.reject("start_game", "players not ready")
		}
	}
	words, err := e.drawWords(ctx)
	if err != nil {
		return nil, err
	}
	if words == nil {
		return nil, e.reject("start_game", "word pool too small")
	}
	round, err := e.openRound(ctx, room, 1, players[0], words)
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("room_id", roomID).Int("players", len(players)).Msg("game started")
	if room.IsPublic {
		e.publishLobby(ctx, EventLobbyRoomChanged, *room)
	}
	return round, nil
}

func (e *Engine) SelectWord(ctx context.Context, who identity.Identity, roomID, wordID string) (*db.Round, error) {
	unlock := e.lockRoom(roomID)
	defer unlock()

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	round, err := e.currentRound(ctx, room)
	if err != nil {
		return nil, err
	}
	if round == nil || round.Status != db.RoundSelecting {
		return nil, e.reject("select_word", "round is not selecting")
	}
	if round.PickerID != who.UserID {
		return nil, e.reject("select_word", "caller is not the picker")
	}

	var word *db.Word
	e.choicesMu.Lock()
	offer, offered := e.choices[round.ID]
	e.choicesMu.Unlock()
	if offered {
		for i := range offer.Words {
			if offer.Words[i].ID == wordID {
				word = &offer.Words[i]
				break
			}
		}
		if word == nil {
			return nil, e.reject("select_word", "word was not offered")
		}
	} else if word, err = e.store.GetWord(ctx, wordID); err != nil {
		return nil, e.reject("select_word", "unknown word")
	}

	now := e.opts.Now()
	round.Word = word.Word
	round.WordEn = word.WordEn
	round.Category = word.Category
	round.CategoryEn = word.CategoryEn
	round.WordLength = wordLength(word.Word, word.Length)
	round.WordLengthEn = letterCount(word.WordEn)
	round.Status = db.RoundGuessing
	round.StartedAt = &now
	if err := e.store.UpdateRound(ctx, round); err != nil {
		return nil, err
	}
	e.choicesMu.Lock()
	delete(e.choices, round.ID)
	e.choicesMu.Unlock()

	e.emit(ctx, roomID, who.UserID, RoundUpdated{Round: publicRound(*round)})
	e.scheduleRoundTimer(roomID, round.ID, e.opts.RoundDuration)
	e.log.Info().Str("room_id", roomID).Int("round", round.RoundNumber).Msg("word selected")
	return round, nil
}

// SubmitGuess records a chat line from a member. Non-picker lines that match
// the word score by rank; the picker's lines never count as guesses.
func (e *Engine) SubmitGuess(ctx context.Context, who identity.Identity, roomID, text string) (*db.Guess, error) {
	text = strings.TrimSpace(text)
	if text == "" || len([]rune(text)) > maxGuessLength {
		return nil, e.reject("submit_guess", "guess is empty or too long")
	}
	unlock := e.lockRoom(roomID)
	defer unlock()

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	round, err := e.currentRound(ctx, room)
	if err != nil {
		return nil, err
	}
	if round == nil || round.Status != db.RoundGuessing {
		return nil, e.reject("submit_guess", "round is not guessing")
	}
	player, err := e.store.GetPlayer(ctx, roomID, who.UserID)
	if err != nil {
		return nil, e.reject("submit_guess", "caller is not a member")
	}
	now := e.opts.Now()
	if round.StartedAt != nil && !now.Before(round.StartedAt.Add(e.opts.RoundDuration)) {
		if err := e.endRound(ctx, room.ID, round, db.EndTimeout); err != nil {
			return nil, err
		}
		return nil, e.reject("submit_guess", "round time is up")
	}

	guesses, err := e.store.ListGuesses(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	isPicker := round.PickerID == who.UserID
	correctSoFar := 0
	for _, g := range guesses {
		if !g.IsCorrect {
			continue
		}
		if g.UserID == who.UserID {
			return nil, e.reject("submit_guess", "already guessed correctly")
		}
		correctSoFar++
	}

	guess := &db.Guess{
		ID:        uuid.NewString(),
		RoundID:   round.ID,
		UserID:    who.UserID,
		Nickname:  player.Nickname,
		Text:      text,
		GuessedAt: now,
	}
	if !isPicker && MatchesWord(text, round.Word, round.WordEn) {
		order := correctSoFar + 1
		guess.IsCorrect = true
		guess.Points = GuesserPoints(correctSoFar)
		guess.GuessOrder = &order
	}
	if err := e.store.CreateGuess(ctx, guess); err != nil {
		return nil, err
	}
	metrics.GuessesTotal.WithLabelValues(fmt.Sprint(guess.IsCorrect)).Inc()
	if guess.Points > 0 {
		if err := e.awardPoints(ctx, player, guess.Points); err != nil {
			return nil, err
		}
	}
	e.emit(ctx, roomID, who.UserID, GuessAdded{Guess: *guess})

	if guess.IsCorrect {
		players, err := e.store.ListPlayers(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if correctGuessers(append(guesses, *guess), players, round.PickerID) >= len(players)-1 {
			if err := e.endRound(ctx, roomID, round, db.EndAllCorrect); err != nil {
				return nil, err
			}
		}
	}
	return guess, nil
}

// awardPoints adds to the room score and, for signed-in players, the
// lifetime total.
func (e *Engine) awardPoints(ctx context.Context, player *db.Player, points int) error {
	if err := e.store.AddPlayerScore(ctx, player.ID, points); err != nil {
		return err
	}
	if player.Guest {
		return nil
	}
	if err := e.store.EnsureUser(ctx, player.UserID); err != nil {
		return err
	}
	return e.store.AddUserTotals(ctx, player.UserID, points, 0)
}

// endRound moves an open round to ended exactly once.
func (e *Engine) endRound(ctx context.Context, roomID string, round *db.Round, reason string) error {
	now := e.opts.Now()
	changed, err := e.store.EndRound(ctx, round.ID, reason, now)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	e.cancelRoundTimer(roomID)
	round.Status = db.RoundEnded
	round.EndReason = reason
	round.EndedAt = &now
	metrics.RoundsEnded.WithLabelValues(reason).Inc()
	e.emit(ctx, roomID, "", RoundUpdated{Round: *round})
	e.log.Info().Str("room_id", roomID).Int("round", round.RoundNumber).Str("reason", reason).Msg("round ended")
	return nil
}

// EndRoundOnTimeout ends the current round once its time is up. Admins call
// it from their sessions and the server calls it from its timer; whichever
// comes first wins and the rest are no-ops.
func (e *Engine) EndRoundOnTimeout(ctx context.Context, who identity.Identity, roomID string) error {
	unlock := e.lockRoom(roomID)
	defer unlock()

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	round, err := e.currentRound(ctx, room)
	if err != nil {
		return err
	}
	if round == nil || round.Status != db.RoundGuessing || round.StartedAt == nil {
		return e.reject("end_round", "round is not guessing")
	}
	if who != system {
		players, err := e.store.ListPlayers(ctx, roomID)
		if err != nil {
			return err
		}
		if !isAdmin(players, who.UserID) {
			return e.reject("end_round", "caller is not admin")
		}
	}
	if e.opts.Now().Before(round.StartedAt.Add(e.opts.RoundDuration)) {
		return e.reject("end_round", "round time remains")
	}
	return e.endRound(ctx, roomID, round, db.EndTimeout)
}

// NextRound settles the picker's score for the ended round, then either
// finishes the game or hands the next round to the following player.
func (e *Engine) NextRound(ctx context.Context, who identity.Identity, roomID string) (*db.Round, error) {
	unlock := e.lockRoom(roomID)
	defer unlock()

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	round, err := e.currentRound(ctx, room)
	if err != nil {
		return nil, err
	}
	if round == nil || round.Status != db.RoundEnded {
		return nil, e.reject("next_round", "round has not ended")
	}
	players, err := e.store.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !isAdmin(players, who.UserID) {
		return nil, e.reject("next_round", "caller is not admin")
	}
	if err := e.scorePicker(ctx, roomID, round, players); err != nil {
		return nil, err
	}

	next := round.RoundNumber + 1
	if next > len(players) {
		return nil, e.finishGame(ctx, who, room)
	}
	order := (room.CurrentPickerOrder + 1) % len(players)
	words, err := e.drawWords(ctx)
	if err != nil {
		return nil, err
	}
	if words == nil {
		return nil, e.reject("next_round", "word pool too small")
	}
	nextRound, err := e.openRound(ctx, room, next, players[order], words)
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("room_id", roomID).Int("round", next).Str("picker_id", nextRound.PickerID).Msg("round opened")
	return nextRound, nil
}

// settleAfterLeave ends the current round when its picker left, or when
// everyone still in the room has already guessed the word.
func (e *Engine) settleAfterLeave(ctx context.Context, room *db.Room, leaverID string, players []db.Player) error {
	round, err := e.currentRound(ctx, room)
	if err != nil || round == nil || round.Status == db.RoundEnded {
		return err
	}
	if round.PickerID == leaverID {
		e.choicesMu.Lock()
		delete(e.choices, round.ID)
		e.choicesMu.Unlock()
		return e.endRound(ctx, room.ID, round, db.EndPickerLeft)
	}
	if round.Status != db.RoundGuessing || len(players) < 2 {
		return nil
	}
	guesses, err := e.store.ListGuesses(ctx, round.ID)
	if err != nil {
		return err
	}
	if correctGuessers(guesses, players, round.PickerID) >= len(players)-1 {
		return e.endRound(ctx, room.ID, round, db.EndAllCorrect)
	}
	return nil
}

// correctGuessers counts current non-picker members with a correct guess.
// Players who left the room no longer count.
func correctGuessers(guesses []db.Guess, players []db.Player, pickerID string) int {
	correct := make(map[string]bool, len(guesses))
	for _, g := range guesses {
		if g.IsCorrect {
			correct[g.UserID] = true
		}
	}
	n := 0
	for _, p := range players {
		if p.UserID != pickerID && correct[p.UserID] {
			n++
		}
	}
	return n
}

func (e *Engine) scorePicker(ctx context.Context, roomID string, round *db.Round, players []db.Player) error {
	first, err := e.store.MarkPickerScored(ctx, round.ID)
	if err != nil || !first {
		return err
	}
	guesses, err := e.store.ListGuesses(ctx, round.ID)
	if err != nil {
		return err
	}
	score := PickerScore(correctGuessers(guesses, players, round.PickerID), len(players)-1)
	if score == 0 {
		return nil
	}
	for _, p := range players {
		if p.UserID != round.PickerID {
			continue
		}
		if err := e.awardPoints(ctx, &p, score); err != nil {
			return err
		}
		p.Score += score
		e.emit(ctx, roomID, p.UserID, PlayerUpdated{Player: p})
		return nil
	}
	return nil
}

func (e *Engine) finishGame(ctx context.Context, who identity.Identity, room *db.Room) error {
	room.Status = db.RoomFinished
	if err := e.store.UpdateRoom(ctx, room); err != nil {
		return err
	}
	e.cancelRoundTimer(room.ID)
	e.emit(ctx, room.ID, who.UserID, RoomUpdated{Room: *room})
	e.emit(ctx, room.ID, who.UserID, GameEnded{RoomID: room.ID})
	e.log.Info().Str("room_id", room.ID).Int("rounds", room.CurrentRound).Msg("game finished")

	if e.opts.Finisher != nil {
		if err := e.opts.Finisher.GameFinished(ctx, room.ID); err != nil {
			e.log.Error().Err(err).Str("room_id", room.ID).Msg("enqueue post-game work failed")
		}
		return nil
	}
	if err := e.FinalizeGame(ctx, room.ID); err != nil {
		e.log.Error().Err(err).Str("room_id", room.ID).Msg("post-game work failed")
	}
	return nil
}
