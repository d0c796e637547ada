package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env                      string
	Port                     string
	RoundDurationSeconds     int
	PollIntervalSeconds      int
	HeartbeatIntervalSeconds int
	WordChoices              int
	MaxPlayers               int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	JWTSecret                string
	RateLimitPerSecond       int
	RateLimitBurst           int
	WordsFile                string
	HintsFile                string
	WorkerConcurrency        int
}

func Default() Config {
	return Config{
		Env:                      "dev",
		Port:                     "8080",
		RoundDurationSeconds:     120,
		PollIntervalSeconds:      5,
		HeartbeatIntervalSeconds: 30,
		WordChoices:              3,
		MaxPlayers:               8,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		JWTSecret:                "dev-secret",
		RateLimitPerSecond:       10,
		RateLimitBurst:           20,
		WordsFile:                "words.csv",
		HintsFile:                "hints.csv",
		WorkerConcurrency:        5,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("APP_ENV"); raw != "" {
		cfg.Env = raw
	}
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	positiveInt("ROUND_SECONDS", &cfg.RoundDurationSeconds)
	positiveInt("POLL_SECONDS", &cfg.PollIntervalSeconds)
	positiveInt("HEARTBEAT_SECONDS", &cfg.HeartbeatIntervalSeconds)
	positiveInt("WORD_CHOICES", &cfg.WordChoices)
	positiveInt("MAX_PLAYERS", &cfg.MaxPlayers)
	positiveInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	positiveInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	positiveInt("DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifetimeSeconds)
	positiveInt("DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleTimeSeconds)
	positiveInt("RATE_LIMIT_PER_SECOND", &cfg.RateLimitPerSecond)
	positiveInt("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	positiveInt("WORKER_CONCURRENCY", &cfg.WorkerConcurrency)
	if raw := os.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := os.Getenv("REDIS_PASSWORD"); raw != "" {
		cfg.RedisPassword = raw
	}
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RedisDB = value
		}
	}
	if raw := os.Getenv("JWT_SECRET"); raw != "" {
		cfg.JWTSecret = raw
	}
	if raw := os.Getenv("WORDS_FILE"); raw != "" {
		cfg.WordsFile = raw
	}
	if raw := os.Getenv("HINTS_FILE"); raw != "" {
		cfg.HintsFile = raw
	}
	return cfg
}

func (c Config) RoundDuration() time.Duration {
	return time.Duration(c.RoundDurationSeconds) * time.Second
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSeconds) * time.Second
}

func positiveInt(name string, dest *int) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*dest = value
	}
}
