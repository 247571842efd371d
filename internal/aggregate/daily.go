// Package aggregate maintains the per-day summary table: one row per
// calendar date and format, with counts, playing time and a
// carried-forward rating.
package aggregate

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/chess-tracker/internal/errors"
	"github.com/chess-tracker/internal/models"
	"github.com/chess-tracker/internal/types"
)

// GameSource reads stored games for a window.
type GameSource interface {
	ListBetween(ctx context.Context, username string, from, to time.Time) ([]*models.Game, error)
}

// DurationSource reads per-game playing time.
type DurationSource interface {
	DurationsByGameID(ctx context.Context, gameIDs []string) (map[string]float64, error)
}

// StatStore reads and writes daily summary rows.
type StatStore interface {
	LastDate(ctx context.Context) (*time.Time, error)
	LatestRatings(ctx context.Context) (map[types.Format]int, error)
	BatchUpsert(ctx context.Context, stats []*models.DailyStat) error
}

// Aggregator extends the daily summary incrementally: each run covers
// the dates after the last summarized one, up to the newest stored game.
type Aggregator struct {
	games     GameSource
	durations DurationSource
	stats     StatStore
	logger    zerolog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(games GameSource, durations DurationSource, stats StatStore, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		games:     games,
		durations: durations,
		stats:     stats,
		logger:    logger.With().Str("component", "aggregate").Logger(),
	}
}

// Update extends the summary for a user. Returns the number of rows
// written; zero means no new dates had games.
func (a *Aggregator) Update(ctx context.Context, username string) (int, error) {
	lastDate, err := a.stats.LastDate(ctx)
	if err != nil {
		return 0, apperrors.NewStorageError("load last summarized date", err)
	}

	var from time.Time
	if lastDate != nil {
		from = lastDate.UTC().AddDate(0, 0, 1)
	}

	games, err := a.games.ListBetween(ctx, username, from, farFuture())
	if err != nil {
		return 0, apperrors.NewStorageError("load games for summary", err)
	}
	if len(games) == 0 {
		a.logger.Debug().Str("username", username).Msg("no new dates to summarize")
		return 0, nil
	}

	ids := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.GameID)
	}
	durations, err := a.durations.DurationsByGameID(ctx, ids)
	if err != nil {
		return 0, apperrors.NewStorageError("load game durations", err)
	}

	ratings, err := a.stats.LatestRatings(ctx)
	if err != nil {
		return 0, apperrors.NewStorageError("load latest ratings", err)
	}

	rows := buildRows(games, durations, ratings, from)
	if err := a.stats.BatchUpsert(ctx, rows); err != nil {
		return 0, apperrors.NewStorageError("write daily summary", err)
	}

	a.logger.Info().
		Str("username", username).
		Int("rows", len(rows)).
		Msg("daily summary extended")

	return len(rows), nil
}

// dayTotals accumulates one date+format cell.
type dayTotals struct {
	wins, losses, draws int
	duration            float64
	hasDuration         bool
	lastRating          int
}

// buildRows produces the summary rows for every date from the window
// start (or the first game when the table was empty) through the newest
// game's date. Formats produce rows from their first appearance onward;
// on a day a format saw no games its counts stay nil and its rating
// carries forward.
func buildRows(games []*models.Game, durations map[string]float64, seedRatings map[types.Format]int, from time.Time) []*models.DailyStat {
	perDay := make(map[time.Time]map[types.Format]*dayTotals)
	var maxDate time.Time
	for _, g := range games {
		date := g.EndDate()
		if date.After(maxDate) {
			maxDate = date
		}
		byFormat := perDay[date]
		if byFormat == nil {
			byFormat = make(map[types.Format]*dayTotals)
			perDay[date] = byFormat
		}
		cell := byFormat[g.Format]
		if cell == nil {
			cell = &dayTotals{}
			byFormat[g.Format] = cell
		}

		switch g.Outcome {
		case types.OutcomeWin:
			cell.wins++
		case types.OutcomeLoss:
			cell.losses++
		case types.OutcomeDraw:
			cell.draws++
		}
		if d, ok := durations[g.GameID]; ok {
			cell.duration += d
			cell.hasDuration = true
		}
		cell.lastRating = g.MyRating
	}

	start := from
	if start.IsZero() {
		start = earliestDate(perDay)
	}

	// Formats already in the table carry rows from day one of the
	// window; new formats join on their first active day.
	ratings := make(map[types.Format]int, len(seedRatings))
	for f, r := range seedRatings {
		ratings[f] = r
	}

	var rows []*models.DailyStat
	for date := start; !date.After(maxDate); date = date.AddDate(0, 0, 1) {
		byFormat := perDay[date]

		for _, format := range sortedFormats(ratings, byFormat) {
			row := &models.DailyStat{Date: date, Format: format}

			if cell, ok := byFormat[format]; ok {
				w, l, dr := cell.wins, cell.losses, cell.draws
				row.Wins, row.Losses, row.Draws = &w, &l, &dr
				if cell.hasDuration {
					d := cell.duration
					row.DurationSeconds = &d
				}
				ratings[format] = cell.lastRating
			}
			if r, ok := ratings[format]; ok {
				rating := r
				row.Rating = &rating
			}
			rows = append(rows, row)
		}
	}

	return rows
}

func earliestDate(perDay map[time.Time]map[types.Format]*dayTotals) time.Time {
	var earliest time.Time
	for date := range perDay {
		if earliest.IsZero() || date.Before(earliest) {
			earliest = date
		}
	}
	return earliest
}

// sortedFormats returns the union of carried and active formats in a
// stable order.
func sortedFormats(ratings map[types.Format]int, active map[types.Format]*dayTotals) []types.Format {
	seen := make(map[types.Format]bool, len(ratings)+len(active))
	var formats []types.Format
	for f := range ratings {
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	for f := range active {
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

func farFuture() time.Time {
	return time.Now().UTC().AddDate(1, 0, 0)
}
