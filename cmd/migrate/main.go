// Package main provides the database migration CLI.
package main

import (
	"flag"

	"github.com/chess-tracker/internal/config"
	"github.com/chess-tracker/internal/logging"
	"github.com/chess-tracker/internal/storage"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up, down or version")
	path := flag.String("path", "migrations/postgres", "path to migration files")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fallback := logging.New("info", "console")
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Logging.Level, "console")

	databaseURL := cfg.Database.Postgres.URL()

	switch *direction {
	case "up":
		if err := storage.RunMigrations(databaseURL, *path); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations applied")
	case "down":
		if err := storage.RollbackMigrations(databaseURL, *path); err != nil {
			logger.Fatal().Err(err).Msg("rollback failed")
		}
		logger.Info().Msg("last migration rolled back")
	case "version":
		version, dirty, err := storage.MigrationVersion(databaseURL, *path)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read migration version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("migration version")
	default:
		logger.Fatal().Str("direction", *direction).Msg("unknown direction, use up, down or version")
	}
}
