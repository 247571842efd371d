// Package main provides the standalone sync worker entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chess-tracker/internal/aggregate"
	"github.com/chess-tracker/internal/chesscom"
	"github.com/chess-tracker/internal/config"
	"github.com/chess-tracker/internal/fetch"
	"github.com/chess-tracker/internal/ingest"
	"github.com/chess-tracker/internal/logging"
	"github.com/chess-tracker/internal/service"
	"github.com/chess-tracker/internal/storage"
	"github.com/chess-tracker/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fallback := logging.New("info", "console")
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info().Str("username", cfg.Sync.Username).Msg("sync worker starting")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redis.Close()

	gameRepo := storage.NewGameRepository(postgres)
	derivationRepo := storage.NewDerivationRepository(postgres)
	dailyRepo := storage.NewDailyStatRepository(postgres)
	syncStatusRepo := storage.NewSyncStatusRepository(postgres)

	client := chesscom.NewClient(&cfg.ChessAPI)
	fetcher := fetch.NewFetcher(client, logger)
	ingestor := ingest.NewIngestor(gameRepo, derivationRepo, redis, logger)
	aggregator := aggregate.NewAggregator(gameRepo, derivationRepo, dailyRepo, logger)

	syncService := service.NewSyncService(fetcher, ingestor, aggregator, syncStatusRepo,
		client, cfg.Sync.Username, cfg.Sync.EnrichGames, logger)

	syncWorker, err := worker.NewSyncWorker(syncService, cfg.Sync.PollInterval, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create sync worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := syncWorker.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start sync worker")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := syncWorker.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("sync worker stop failed")
	}

	logger.Info().Msg("shutdown complete")
}
