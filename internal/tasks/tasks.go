// Package tasks defines the background jobs queued through asynq.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"hintparty/internal/log"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const (
	// TypeFinalizeGame materializes picker stats and lifetime totals for one
	// finished room.
	TypeFinalizeGame = "stats:finalize"
	// TypeSweepFinished finalizes finished rooms whose job was never queued.
	TypeSweepFinished = "stats:sweep"

	QueueDefault = "default"

	finalizeMaxRetry = 5
)

type FinalizeGamePayload struct {
	RoomID string `json:"room_id"`
}

func NewFinalizeGameTask(roomID string) (*asynq.Task, error) {
	payload, err := json.Marshal(FinalizeGamePayload{RoomID: roomID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFinalizeGame, payload), nil
}

func NewSweepFinishedTask() *asynq.Task {
	return asynq.NewTask(TypeSweepFinished, nil)
}

// Enqueuer hands finished games to the worker.
type Enqueuer struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client, log: log.Component("tasks")}
}

// GameFinished queues the post-game job. A job already queued for the room
// is left alone.
func (q *Enqueuer) GameFinished(ctx context.Context, roomID string) error {
	task, err := NewFinalizeGameTask(roomID)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(finalizeMaxRetry),
		asynq.TaskID("finalize:"+roomID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeFinalizeGame, err)
	}
	q.log.Info().Str("room_id", roomID).Str("task_id", info.ID).Str("queue", info.Queue).Msg("finalize task queued")
	return nil
}

func (q *Enqueuer) Close() error {
	return q.client.Close()
}
