// Package main provides the duplicate-removal maintenance CLI.
package main

import (
	"context"
	"os"

	"github.com/chess-tracker/internal/config"
	"github.com/chess-tracker/internal/logging"
	"github.com/chess-tracker/internal/storage"
)

func main() {
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

	gameRepo := storage.NewGameRepository(postgres)

	removed, err := gameRepo.RemoveDuplicates(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("duplicate removal failed")
		os.Exit(1)
	}

	logger.Info().Int64("removed", removed).Msg("duplicate removal complete")
}
