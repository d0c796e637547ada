package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"hintparty/internal/bus"
	"hintparty/internal/config"
	"hintparty/internal/db"
	"hintparty/internal/game"
	hlog "hintparty/internal/log"
	"hintparty/internal/store"
	"hintparty/internal/worker"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	hlog.Init(cfg.Env)
	if cfg.RedisAddr == "" {
		log.Fatal().Msg("REDIS_ADDR is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	b := bus.NewRedis(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}))
	if err := b.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer b.Close()

	opts := game.OptionsFromConfig(cfg)
	opts.ServerTimers = false
	engine := game.NewEngine(store.NewGorm(conn), b, opts)
	defer engine.Close()

	srv := worker.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, engine, cfg.WorkerConcurrency)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("worker start failed")
	}
	log.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker running")

	<-ctx.Done()
	srv.Shutdown()
	log.Info().Msg("worker stopped")
}
