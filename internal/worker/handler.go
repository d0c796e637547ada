package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hintparty/internal/game"
	"hintparty/internal/log"
	"hintparty/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const sweepBatch = 50

// Finalizer runs the post-game work for rooms.
type Finalizer interface {
	FinalizeGame(ctx context.Context, roomID string) error
	PendingFinalization(ctx context.Context, limit int) ([]string, error)
}

type Handler struct {
	finalizer Finalizer
	log       zerolog.Logger
}

func NewHandler(finalizer Finalizer) *Handler {
	return &Handler{finalizer: finalizer, log: log.Component("worker")}
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeFinalizeGame, h.ProcessFinalize)
	mux.HandleFunc(tasks.TypeSweepFinished, h.ProcessSweep)
}

func (h *Handler) ProcessFinalize(ctx context.Context, t *asynq.Task) error {
	logger := h.taskLogger(ctx, t)
	var payload tasks.FinalizeGamePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.RoomID == "" {
		logger.Error().Err(err).Msg("bad finalize payload")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	err := h.finalizer.FinalizeGame(ctx, payload.RoomID)
	if errors.Is(err, game.ErrRejected) || errors.Is(err, game.ErrNotFound) {
		logger.Warn().Err(err).Str("room_id", payload.RoomID).Msg("room cannot be finalized")
		return fmt.Errorf("finalize %s: %v: %w", payload.RoomID, err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("finalize %s: %w", payload.RoomID, err)
	}
	logger.Info().Str("room_id", payload.RoomID).Msg("finalize task done")
	return nil
}

// ProcessSweep finalizes finished rooms that slipped past the queue, for
// example when the server could not reach redis at the end of a game.
func (h *Handler) ProcessSweep(ctx context.Context, t *asynq.Task) error {
	logger := h.taskLogger(ctx, t)
	ids, err := h.finalizer.PendingFinalization(ctx, sweepBatch)
	if err != nil {
		return fmt.Errorf("list pending rooms: %w", err)
	}
	var failed []error
	for _, id := range ids {
		if err := h.finalizer.FinalizeGame(ctx, id); err != nil {
			logger.Warn().Err(err).Str("room_id", id).Msg("sweep finalize failed")
			failed = append(failed, err)
		}
	}
	logger.Info().Int("rooms", len(ids)).Int("failed", len(failed)).Msg("sweep done")
	return errors.Join(failed...)
}

func (h *Handler) taskLogger(ctx context.Context, t *asynq.Task) zerolog.Logger {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	retry, _ := asynq.GetRetryCount(ctx)
	return h.log.With().Str("task_id", taskID).Str("task_type", t.Type()).Int("retry", retry).Logger()
}
