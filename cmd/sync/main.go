// Package main provides a one-shot sync CLI: run a single pass and
// exit. The -full flag forces a re-read of every archive.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/chess-tracker/internal/aggregate"
	"github.com/chess-tracker/internal/chesscom"
	"github.com/chess-tracker/internal/config"
	"github.com/chess-tracker/internal/fetch"
	"github.com/chess-tracker/internal/ingest"
	"github.com/chess-tracker/internal/logging"
	"github.com/chess-tracker/internal/service"
	"github.com/chess-tracker/internal/storage"
)

func main() {
	full := flag.Bool("full", false, "re-read every monthly archive instead of syncing from the cursor")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fallback := logging.New("info", "console")
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Postgres")
	}
	defer postgres.Close()

	// The cache is optional for a one-shot run.
	var cache ingest.CacheInvalidator
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, continuing without cache invalidation")
	} else {
		defer redis.Close()
		cache = redis
	}

	gameRepo := storage.NewGameRepository(postgres)
	derivationRepo := storage.NewDerivationRepository(postgres)
	dailyRepo := storage.NewDailyStatRepository(postgres)
	syncStatusRepo := storage.NewSyncStatusRepository(postgres)

	client := chesscom.NewClient(&cfg.ChessAPI)
	fetcher := fetch.NewFetcher(client, logger)
	ingestor := ingest.NewIngestor(gameRepo, derivationRepo, cache, logger)
	aggregator := aggregate.NewAggregator(gameRepo, derivationRepo, dailyRepo, logger)

	syncService := service.NewSyncService(fetcher, ingestor, aggregator, syncStatusRepo,
		client, cfg.Sync.Username, cfg.Sync.EnrichGames, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var report *service.RunReport
	if *full {
		report, err = syncService.RunFull(ctx)
	} else {
		report, err = syncService.RunOnce(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("sync run failed")
		os.Exit(1)
	}

	logger.Info().
		Str("run_id", report.RunID).
		Bool("initial", report.InitialSync).
		Int("fetched", report.Fetched).
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Int("enriched", report.Enriched).
		Int("summary_rows", report.SummaryRows).
		Msg("sync run complete")
}
