package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/chess-tracker/internal/models"
	"github.com/chess-tracker/internal/storage"
	"github.com/chess-tracker/internal/types"
)

// GameReader reads stored games.
type GameReader interface {
	List(ctx context.Context, username string, limit, offset int) ([]*models.Game, error)
	GetByID(ctx context.Context, gameID string) (*models.Game, error)
	Count(ctx context.Context, username string) (int64, error)
	RatingHistory(ctx context.Context, username string) (map[types.Format][]storage.RatingPoint, error)
}

// StatReader reads daily summary rows.
type StatReader interface {
	ListRange(ctx context.Context, from, to time.Time) ([]*models.DailyStat, error)
}

// DerivationReader reads move analytics for single games.
type DerivationReader interface {
	GetByGameID(ctx context.Context, gameID string) (*models.MoveDerivation, error)
}

// Cache is the read-path cache surface.
type Cache interface {
	GetRecentGames(ctx context.Context, username string, dest interface{}) (bool, error)
	SetRecentGames(ctx context.Context, username string, value interface{}, ttl time.Duration) error
	GetDailyStats(ctx context.Context, username string, dest interface{}) (bool, error)
	SetDailyStats(ctx context.Context, username string, value interface{}, ttl time.Duration) error
}

// StatusReader reads the sync cursor.
type StatusReader interface {
	Get(ctx context.Context, username string) (*models.SyncStatus, error)
}

// StatsService serves the read paths, caching the hot payloads.
type StatsService struct {
	games       GameReader
	stats       StatReader
	derivations DerivationReader
	cursors     StatusReader
	cache       Cache
	cacheTTL    time.Duration
	username    string
	logger      zerolog.Logger
}

// NewStatsService creates a stats service. The cache may be nil.
func NewStatsService(games GameReader, stats StatReader, derivations DerivationReader,
	cursors StatusReader, cache Cache, cacheTTL time.Duration, username string, logger zerolog.Logger) *StatsService {
	return &StatsService{
		games:       games,
		stats:       stats,
		derivations: derivations,
		cursors:     cursors,
		cache:       cache,
		cacheTTL:    cacheTTL,
		username:    username,
		logger:      logger.With().Str("component", "stats").Logger(),
	}
}

// defaultRecentLimit is the first page size served from cache.
const defaultRecentLimit = 50

// RecentGames returns a page of games, newest first. The first page is
// served from cache when available.
func (s *StatsService) RecentGames(ctx context.Context, limit, offset int) ([]*models.Game, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	cacheable := s.cache != nil && offset == 0 && limit == defaultRecentLimit
	if cacheable {
		var cached []*models.Game
		hit, err := s.cache.GetRecentGames(ctx, s.username, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	games, err := s.games.List(ctx, s.username, limit, offset)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.SetRecentGames(ctx, s.username, games, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("cache write failed")
		}
	}
	return games, nil
}

// Game returns one stored game with its move analytics.
func (s *StatsService) Game(ctx context.Context, gameID string) (*models.Game, *models.MoveDerivation, error) {
	game, err := s.games.GetByID(ctx, gameID)
	if err != nil || game == nil {
		return nil, nil, err
	}
	derivation, err := s.derivations.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	return game, derivation, nil
}

// DailyStats returns summary rows for a date window. A zero window
// covers everything and is served from cache when available.
func (s *StatsService) DailyStats(ctx context.Context, from, to time.Time) ([]*models.DailyStat, error) {
	fullRange := from.IsZero() && to.IsZero()
	if fullRange {
		from = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
		to = time.Now().UTC().AddDate(1, 0, 0)
	}

	cacheable := s.cache != nil && fullRange
	if cacheable {
		var cached []*models.DailyStat
		hit, err := s.cache.GetDailyStats(ctx, s.username, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	stats, err := s.stats.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.SetDailyStats(ctx, s.username, stats, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("cache write failed")
		}
	}
	return stats, nil
}

// RatingHistory returns the per-format rating timeline.
func (s *StatsService) RatingHistory(ctx context.Context) (map[types.Format][]storage.RatingPoint, error) {
	return s.games.RatingHistory(ctx, s.username)
}

// Status describes the sync state for the tracked account.
type Status struct {
	Username        string     `json:"username"`
	GameCount       int64      `json:"gameCount"`
	InitialSyncDone bool       `json:"initialSyncDone"`
	LastGameURL     string     `json:"lastGameUrl,omitempty"`
	LastGameEndTime *time.Time `json:"lastGameEndTime,omitempty"`
	LastSyncAt      *time.Time `json:"lastSyncAt,omitempty"`
}

// Status returns the sync cursor plus the stored game count.
func (s *StatsService) Status(ctx context.Context) (*Status, error) {
	count, err := s.games.Count(ctx, s.username)
	if err != nil {
		return nil, err
	}

	status := &Status{Username: s.username, GameCount: count}
	cursor, err := s.cursors.Get(ctx, s.username)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		status.InitialSyncDone = cursor.InitialSyncDone
		status.LastGameURL = cursor.LastGameURL
		status.LastGameEndTime = cursor.LastGameEndTime
		status.LastSyncAt = cursor.LastSyncAt
	}
	return status, nil
}
