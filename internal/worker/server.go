// Package worker runs the asynq server that processes post-game jobs.
package worker

import (
	"context"
	"errors"

	"hintparty/internal/log"
	"hintparty/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const sweepSchedule = "@every 5m"

type Server struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	handler   *Handler
	log       zerolog.Logger
}

func NewServer(redisOpt asynq.RedisClientOpt, finalizer Finalizer, concurrency int) *Server {
	logger := log.Component("worker_server")
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{tasks.QueueDefault: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error().Err(err).
				Str("task_type", task.Type()).
				Int("retry", retry).
				Int("max_retry", maxRetry).
				Msg("task failed")
		}),
	})
	return &Server{
		server:    server,
		scheduler: asynq.NewScheduler(redisOpt, nil),
		handler:   NewHandler(finalizer),
		log:       logger,
	}
}

// Start registers the periodic sweep and begins processing tasks in the
// background. Call Shutdown to stop.
func (s *Server) Start() error {
	if _, err := s.scheduler.Register(sweepSchedule, tasks.NewSweepFinishedTask(), asynq.Queue(tasks.QueueDefault)); err != nil {
		return err
	}
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	mux := asynq.NewServeMux()
	s.handler.Register(mux)
	s.log.Info().Msg("worker starting")
	if err := s.server.Start(mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		s.scheduler.Shutdown()
		return err
	}
	return nil
}

func (s *Server) Shutdown() {
	s.log.Info().Msg("worker shutting down")
	s.scheduler.Shutdown()
	s.server.Shutdown()
}
