package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hintparty/internal/bus"
	"hintparty/internal/config"
	"hintparty/internal/db"
	"hintparty/internal/game"
	"hintparty/internal/identity"
	hlog "hintparty/internal/log"
	"hintparty/internal/server"
	"hintparty/internal/store"
	"hintparty/internal/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const tokenTTL = 24 * time.Hour

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	hlog.Init(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(ctx, cfg)
	b, enqueuer := connectRedis(ctx, cfg)

	opts := game.OptionsFromConfig(cfg)
	if enqueuer != nil {
		opts.Finisher = enqueuer
	}
	engine := game.NewEngine(st, b, opts)

	srv := server.New(engine, b, identity.NewIssuer(cfg.JWTSecret, tokenTTL), cfg)
	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("lobby subscription failed")
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()
	log.Info().Str("addr", httpSrv.Addr).Msg("hintparty server listening")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	srv.Close()
	engine.Close()
	if enqueuer != nil {
		_ = enqueuer.Close()
	}
	_ = b.Close()
}

// openStore uses Postgres when DATABASE_URL is set and an in-memory store
// seeded from the word and hint files otherwise.
func openStore(ctx context.Context, cfg config.Config) store.Store {
	if os.Getenv("DATABASE_URL") != "" {
		conn, err := db.Open(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		return store.NewGorm(conn)
	}
	log.Warn().Msg("DATABASE_URL is not set; using in-memory store")
	mem := store.NewMemory()
	words, err := db.ReadWords(cfg.WordsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.WordsFile).Msg("failed to read words")
	}
	hints, err := db.ReadHintCatalog(cfg.HintsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.HintsFile).Msg("failed to read hint catalog")
	}
	if err := store.Seed(ctx, mem, words, hints); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Int("words", len(words)).Int("hint_types", len(hints)).Msg("memory store seeded")
	return mem
}

// connectRedis returns the Redis bus and post-game task queue, or an
// in-process bus and no queue when REDIS_ADDR is unset.
func connectRedis(ctx context.Context, cfg config.Config) (bus.Bus, *tasks.Enqueuer) {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is not set; events stay in this process")
		return bus.NewLocal(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	b := bus.NewRedis(client)
	if err := b.Connect(ctx); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connect failed")
	}
	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return b, tasks.NewEnqueuer(queue)
}
