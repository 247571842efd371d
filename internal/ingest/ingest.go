// Package ingest turns fetched archive games into persisted rows:
// dedup, normalization, move-timing extraction and prior-rating
// threading, then a single batched write.
package ingest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chess-tracker/internal/chesscom"
	apperrors "github.com/chess-tracker/internal/errors"
	"github.com/chess-tracker/internal/models"
	"github.com/chess-tracker/internal/normalize"
	"github.com/chess-tracker/internal/pgn"
	"github.com/chess-tracker/internal/storage"
	"github.com/chess-tracker/internal/types"
)

// GameStore is the slice of game persistence the ingestor needs.
type GameStore interface {
	GetExistingIDs(ctx context.Context, username string) (map[string]bool, error)
	RatingHistory(ctx context.Context, username string) (map[types.Format][]storage.RatingPoint, error)
	BatchInsert(ctx context.Context, games []*models.Game) error
	ListUnenriched(ctx context.Context, username string, limit int) ([]*models.Game, error)
	UpdateCallbackRatings(ctx context.Context, gameID string, ratingBefore, ratingAfter *int, analyzed bool) error
	RemoveDuplicates(ctx context.Context) (int64, error)
}

// DerivationStore persists move derivations.
type DerivationStore interface {
	BatchInsert(ctx context.Context, derivations []*models.MoveDerivation) error
}

// CacheInvalidator drops cached read payloads after a write.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, username string) error
}

// DetailClient fetches the per-game callback record for enrichment.
type DetailClient interface {
	FetchGameDetail(ctx context.Context, gameID string, daily bool) (*chesscom.GameDetail, error)
}

// Report summarizes one ingestion batch.
type Report struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Ingestor writes fetched games to storage exactly once each.
type Ingestor struct {
	games       GameStore
	derivations DerivationStore
	cache       CacheInvalidator
	logger      zerolog.Logger
}

// NewIngestor creates an ingestor. The cache may be nil when no read
// cache is configured.
func NewIngestor(games GameStore, derivations DerivationStore, cache CacheInvalidator, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		games:       games,
		derivations: derivations,
		cache:       cache,
		logger:      logger.With().Str("component", "ingest").Logger(),
	}
}

// Ingest processes one fetched batch for a user. Games already stored
// (or repeated within the batch) are skipped; the rest are normalized,
// their PGN analytics extracted, and written in one batch. Per-game
// normalization failures are logged and skipped; storage failures abort
// the whole batch so the cursor is not advanced past unwritten games.
func (in *Ingestor) Ingest(ctx context.Context, username string, raws []models.RawGame) (*Report, error) {
	report := &Report{Fetched: len(raws)}
	if len(raws) == 0 {
		return report, nil
	}

	existing, err := in.games.GetExistingIDs(ctx, username)
	if err != nil {
		return nil, apperrors.NewStorageError("load existing ids", err)
	}
	history, err := in.games.RatingHistory(ctx, username)
	if err != nil {
		return nil, apperrors.NewStorageError("load rating history", err)
	}

	// Oldest first so prior-rating threading follows play order.
	sorted := make([]models.RawGame, len(raws))
	copy(sorted, raws)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EndTime < sorted[j].EndTime
	})

	var (
		games       []*models.Game
		derivations []*models.MoveDerivation
	)

	for i := range sorted {
		raw := &sorted[i]
		id := raw.GameID()
		if id == "" || existing[id] {
			report.Skipped++
			continue
		}
		existing[id] = true

		game, err := normalize.Normalize(raw, username)
		if err != nil {
			report.Skipped++
			in.logger.Warn().
				Err(err).
				Str("game_id", id).
				Msg("skipping game")
			continue
		}

		// The prior rating is the one held going into this game: the
		// latest point on the format's timeline strictly before it. A
		// late-arriving game must not pick up a rating from a game
		// played after it.
		if prior, ok := priorRating(history[game.Format], game.EndTime); ok {
			p := prior
			game.PriorRating = &p
		}
		history[game.Format] = insertRatingPoint(history[game.Format],
			storage.RatingPoint{Time: game.EndTime, Rating: game.MyRating})

		derivations = append(derivations, in.derive(raw, game))
		games = append(games, game)
	}

	if len(games) == 0 {
		return report, nil
	}

	if err := in.games.BatchInsert(ctx, games); err != nil {
		return nil, apperrors.NewStorageError("insert games", err)
	}
	if err := in.derivations.BatchInsert(ctx, derivations); err != nil {
		return nil, apperrors.NewStorageError("insert derivations", err)
	}
	report.Inserted = len(games)

	if in.cache != nil {
		if err := in.cache.InvalidateUser(ctx, username); err != nil {
			in.logger.Warn().Err(err).Msg("cache invalidation failed")
		}
	}

	in.logger.Info().
		Str("username", username).
		Int("fetched", report.Fetched).
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Msg("batch ingested")

	return report, nil
}

// priorRating returns the most recent rating recorded strictly before t.
func priorRating(points []storage.RatingPoint, t time.Time) (int, bool) {
	idx := sort.Search(len(points), func(i int) bool {
		return !points[i].Time.Before(t)
	})
	if idx == 0 {
		return 0, false
	}
	return points[idx-1].Rating, true
}

// insertRatingPoint keeps the timeline ordered so later games in the
// same batch resolve against it correctly.
func insertRatingPoint(points []storage.RatingPoint, p storage.RatingPoint) []storage.RatingPoint {
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].Time.After(p.Time)
	})
	points = append(points, storage.RatingPoint{})
	copy(points[idx+1:], points[idx:])
	points[idx] = p
	return points
}

// derive extracts the move analytics for one game.
func (in *Ingestor) derive(raw *models.RawGame, game *models.Game) *models.MoveDerivation {
	tc := pgn.ParseTimeControl(raw.TimeControl, raw.TimeClass)

	var base, increment int
	if tc.BaseSeconds != nil {
		base = *tc.BaseSeconds
	}
	if tc.IncrementSeconds != nil {
		increment = *tc.IncrementSeconds
	}

	d := pgn.Extract(raw.PGN, base, increment)

	md := &models.MoveDerivation{
		GameID:          game.GameID,
		Moves:           d.Moves,
		Clocks:          d.Clocks,
		SecondsSpent:    d.SecondsSpent,
		PlyCount:        d.PlyCount,
		MoveCount:       d.MoveCount,
		DurationSeconds: d.DurationSeconds,
		ECO:             d.ECO,
	}
	if md.ECO == "" {
		md.ECO = game.ECO
	}
	if md.Moves == nil {
		md.Moves = []string{}
	}
	if md.Clocks == nil {
		md.Clocks = []float64{}
	}
	if md.SecondsSpent == nil {
		md.SecondsSpent = []float64{}
	}
	return md
}

// Enrich runs a best-effort callback pass over stored games that have
// not been enriched yet. Each game is independent: a failed detail
// fetch is logged and the game retried on a later pass.
func (in *Ingestor) Enrich(ctx context.Context, client DetailClient, username string, limit int) (int, error) {
	games, err := in.games.ListUnenriched(ctx, username, limit)
	if err != nil {
		return 0, apperrors.NewStorageError("list unenriched", err)
	}

	enriched := 0
	for _, game := range games {
		detail, err := client.FetchGameDetail(ctx, game.GameID, game.TimeClass == types.TimeClassDaily)
		if err != nil {
			in.logger.Warn().
				Err(err).
				Str("game_id", game.GameID).
				Msg("detail fetch failed")
			if apperrors.IsFatal(err) {
				return enriched, err
			}
			continue
		}

		before, after := callbackRatings(detail, game.Username)
		if err := in.games.UpdateCallbackRatings(ctx, game.GameID, before, after, detail.Game.IsAnalyzable); err != nil {
			return enriched, apperrors.NewStorageError("update callback ratings", err)
		}
		enriched++
	}

	if enriched > 0 && in.cache != nil {
		if err := in.cache.InvalidateUser(ctx, username); err != nil {
			in.logger.Warn().Err(err).Msg("cache invalidation failed")
		}
	}

	return enriched, nil
}

// callbackRatings derives the before/after rating pair for the tracked
// player from a detail payload. A zero rating change is ambiguous (the
// field is absent for unrated and aborted games) so before stays
// unknown.
func callbackRatings(detail *chesscom.GameDetail, username string) (before, after *int) {
	var me *chesscom.CallbackPlayer
	switch {
	case strings.EqualFold(detail.Players.Bottom.Username, username):
		me = &detail.Players.Bottom
	case strings.EqualFold(detail.Players.Top.Username, username):
		me = &detail.Players.Top
	default:
		return nil, nil
	}

	a := me.Rating
	after = &a
	if me.RatingChange != 0 {
		b := me.Rating - me.RatingChange
		before = &b
	}
	return before, after
}

// RemoveDuplicates deletes redundant stored copies of the same game,
// keeping the first inserted row. Safe to run repeatedly.
func (in *Ingestor) RemoveDuplicates(ctx context.Context) (int64, error) {
	removed, err := in.games.RemoveDuplicates(ctx)
	if err != nil {
		return 0, apperrors.NewStorageError("remove duplicates", err)
	}
	if removed > 0 {
		in.logger.Info().Int64("removed", removed).Msg("duplicate games removed")
	}
	return removed, nil
}
