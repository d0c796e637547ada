package game

import (
	"context"
	"errors"

	"hintparty/internal/db"
	"hintparty/internal/identity"
	"hintparty/internal/store"

	"github.com/google/uuid"
)

func (e *Engine) HintCatalog(ctx context.Context) ([]db.HintType, error) {
	return e.store.ListHintTypes(ctx)
}

// pickerRound returns the guessing round when the caller is its picker.
func (e *Engine) pickerRound(ctx context.Context, action string, who identity.Identity, roomID string) (*db.Round, error) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	round, err := e.currentRound(ctx, room)
	if err != nil {
		return nil, err
	}
	if round == nil || round.Status != db.RoundGuessing {
		return nil, e.reject(action, "round is not guessing")
	}
	if round.PickerID != who.UserID {
		return nil, e.reject(action, "caller is not the picker")
	}
	return round, nil
}

func findHint(hints []db.RoundHint, id string) *db.RoundHint {
	for i := range hints {
		if hints[i].ID == id {
			return &hints[i]
		}
	}
	return nil
}

// AddHint fills an empty slot with an option of a hint type not yet used in
// the round.
func (e *Engine) AddHint(ctx context.Context, who identity.Identity, roomID string, slot int, typeID, optionID string) (*db.RoundHint, error) {
	if slot < 1 || slot > maxHintSlots {
		return nil, e.reject("add_hint", "slot out of range")
	}
	unlock := e.lockRoom(roomID)
	defer unlock()

	round, err := e.pickerRound(ctx, "add_hint", who, roomID)
	if err != nil {
		return nil, err
	}
	option, err := e.store.GetHintOption(ctx, optionID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && option.TypeID != typeID) {
		return nil, e.reject("add_hint", "option does not belong to hint type")
	}
	if err != nil {
		return nil, err
	}
	hints, err := e.store.ListHints(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	for _, h := range hints {
		if h.SlotNumber == slot {
			return nil, e.reject("add_hint", "slot already filled")
		}
		if h.HintTypeID == typeID {
			return nil, e.reject("add_hint", "hint type already used")
		}
	}
	now := e.opts.Now()
	hint := &db.RoundHint{
		ID:           uuid.NewString(),
		RoundID:      round.ID,
		HintTypeID:   typeID,
		HintOptionID: optionID,
		SlotNumber:   slot,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateHint(ctx, hint); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, e.reject("add_hint", "slot or type taken")
		}
		return nil, err
	}
	if hints, err = e.store.ListHints(ctx, round.ID); err == nil {
		if full := findHint(hints, hint.ID); full != nil {
			hint = full
		}
	}
	e.emit(ctx, roomID, who.UserID, HintAdded{Hint: *hint})
	return hint, nil
}

// UpdateHint swaps the option in an occupied slot for another option of the
// same type.
func (e *Engine) UpdateHint(ctx context.Context, who identity.Identity, roomID string, slot int, optionID string) (*db.RoundHint, error) {
	if slot < 1 || slot > maxHintSlots {
		return nil, e.reject("update_hint", "slot out of range")
	}
	unlock := e.lockRoom(roomID)
	defer unlock()

	round, err := e.pickerRound(ctx, "update_hint", who, roomID)
	if err != nil {
		return nil, err
	}
	hints, err := e.store.ListHints(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	var current *db.RoundHint
	for i := range hints {
		if hints[i].SlotNumber == slot {
			current = &hints[i]
			break
		}
	}
	if current == nil {
		return nil, e.reject("update_hint", "slot is empty")
	}
	option, err := e.store.GetHintOption(ctx, optionID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && option.TypeID != current.HintTypeID) {
		return nil, e.reject("update_hint", "option does not belong to hint type")
	}
	if err != nil {
		return nil, err
	}
	if current.HintOptionID == optionID {
		return current, nil
	}
	now := e.opts.Now()
	if err := e.store.UpdateHintOption(ctx, current.ID, optionID, now); err != nil {
		return nil, err
	}
	current.HintOptionID = optionID
	current.HintOption = option
	current.UpdatedAt = now
	e.emit(ctx, roomID, who.UserID, HintUpdated{Hint: *current})
	return current, nil
}
