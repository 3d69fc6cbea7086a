package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"creditline-backend/internal/application/ingest"
	"creditline-backend/internal/config"
	"creditline-backend/internal/infrastructure/database"
	"creditline-backend/internal/observability"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Ingestion worker: drains the spreadsheet-ingestion queue and records run
// outcomes. Run alongside the API binary.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}
	observability.SetupLogger(cfg.Env, cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		log.Fatal().Msg("REDIS_URL is required")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Postgres connection failed")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("bad REDIS_URL")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := &ingest.Worker{
		Queue:   &ingest.Queue{DB: db, Rdb: rdb},
		Service: &ingest.Service{DB: db},
	}

	log.Info().Msg("ingestion worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("worker stopped")
	}
	log.Info().Msg("ingestion worker stopped")
}
