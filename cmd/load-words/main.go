package main

import (
	"context"
	"flag"

	"hintparty/internal/config"
	"hintparty/internal/db"
	hlog "hintparty/internal/log"
	"hintparty/internal/store"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	wordsPath := flag.String("words", cfg.WordsFile, "path to words csv")
	hintsPath := flag.String("hints", cfg.HintsFile, "path to hint catalog csv")
	flag.Parse()
	hlog.Init(cfg.Env)

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	words, err := db.ReadWords(*wordsPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *wordsPath).Msg("failed to read words")
	}
	hints, err := db.ReadHintCatalog(*hintsPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *hintsPath).Msg("failed to read hint catalog")
	}
	if err := store.Seed(context.Background(), store.NewGorm(conn), words, hints); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	options := 0
	for _, h := range hints {
		options += len(h.Options)
	}
	log.Info().Int("words", len(words)).Int("hint_types", len(hints)).Int("hint_options", options).Msg("word pool loaded")
}
