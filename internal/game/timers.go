package game

import (
	"context"
	"errors"
	"time"
)

func (e *Engine) scheduleRoundTimer(roomID, roundID string, duration time.Duration) {
	if !e.opts.ServerTimers || duration <= 0 {
		return
	}
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if existing, ok := e.timers[roomID]; ok {
		existing.Stop()
	}
	e.timers[roomID] = time.AfterFunc(duration, func() {
		e.roundTimerFired(roomID, roundID)
	})
}

func (e *Engine) cancelRoundTimer(roomID string) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if timer, ok := e.timers[roomID]; ok {
		timer.Stop()
		delete(e.timers, roomID)
	}
}

func (e *Engine) roundTimerFired(roomID, roundID string) {
	e.timersMu.Lock()
	delete(e.timers, roomID)
	e.timersMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := e.EndRoundOnTimeout(ctx, system, roomID)
	if err != nil && !errors.Is(err, ErrRejected) {
		e.log.Warn().Err(err).Str("room_id", roomID).Str("round_id", roundID).Msg("round timeout failed")
	}
}

// Close stops all pending round timers.
func (e *Engine) Close() {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	for roomID, timer := range e.timers {
		timer.Stop()
		delete(e.timers, roomID)
	}
}
