package game

import (
	"errors"
	"fmt"

	"hintparty/internal/metrics"
	"hintparty/internal/store"
)

var (
	// ErrRejected marks an action that was ignored because the caller had
	// the wrong role or the room was in the wrong state.
	ErrRejected   = errors.New("action not applicable")
	ErrNotFound   = store.ErrNotFound
	ErrRoomFull   = errors.New("room is full")
	ErrRoomClosed = errors.New("room is not accepting new players")
)

func (e *Engine) reject(action, reason string) error {
	metrics.ActionsRejected.WithLabelValues(action).Inc()
	e.log.Debug().Str("action", action).Str("reason", reason).Msg("action ignored")
	return fmt.Errorf("%s: %w: %s", action, ErrRejected, reason)
}
