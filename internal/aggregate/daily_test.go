package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess-tracker/internal/models"
	"github.com/chess-tracker/internal/types"
)

type stubSource struct {
	games     []*models.Game
	durations map[string]float64
	lastDate  *time.Time
	ratings   map[types.Format]int
	written   []*models.DailyStat
}

func (s *stubSource) ListBetween(_ context.Context, _ string, from, to time.Time) ([]*models.Game, error) {
	var out []*models.Game
	for _, g := range s.games {
		if !g.EndTime.Before(from) && g.EndTime.Before(to) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stubSource) DurationsByGameID(_ context.Context, _ []string) (map[string]float64, error) {
	return s.durations, nil
}

func (s *stubSource) LastDate(_ context.Context) (*time.Time, error) {
	return s.lastDate, nil
}

func (s *stubSource) LatestRatings(_ context.Context) (map[types.Format]int, error) {
	if s.ratings == nil {
		return map[types.Format]int{}, nil
	}
	return s.ratings, nil
}

func (s *stubSource) BatchUpsert(_ context.Context, stats []*models.DailyStat) error {
	s.written = append(s.written, stats...)
	return nil
}

func game(id string, end time.Time, format types.Format, outcome types.Outcome, rating int) *models.Game {
	return &models.Game{
		GameID:   id,
		Username: "alice",
		Format:   format,
		Outcome:  outcome,
		MyRating: rating,
		EndTime:  end,
	}
}

func testAggregator(s *stubSource) *Aggregator {
	return NewAggregator(s, s, s, zerolog.Nop())
}

func findRow(t *testing.T, rows []*models.DailyStat, date time.Time, format types.Format) *models.DailyStat {
	t.Helper()
	for _, r := range rows {
		if r.Date.Equal(date) && r.Format == format {
			return r
		}
	}
	t.Fatalf("no row for %s %s", date.Format("2006-01-02"), format)
	return nil
}

func TestUpdate_FullBuild(t *testing.T) {
	day1 := time.Date(2021, time.October, 5, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	src := &stubSource{
		games: []*models.Game{
			game("1", day1.Add(9*time.Hour), "blitz", types.OutcomeWin, 1500),
			game("2", day1.Add(10*time.Hour), "blitz", types.OutcomeLoss, 1492),
			game("3", day1.Add(11*time.Hour), "rapid", types.OutcomeDraw, 1600),
			game("4", day2.Add(9*time.Hour), "blitz", types.OutcomeWin, 1501),
		},
		durations: map[string]float64{"1": 300, "2": 280, "4": 295},
	}

	n, err := testAggregator(src).Update(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	b1 := findRow(t, src.written, day1, "blitz")
	require.NotNil(t, b1.Wins)
	assert.Equal(t, 1, *b1.Wins)
	assert.Equal(t, 1, *b1.Losses)
	assert.Equal(t, 0, *b1.Draws)
	require.NotNil(t, b1.DurationSeconds)
	assert.Equal(t, 580.0, *b1.DurationSeconds)
	require.NotNil(t, b1.Rating)
	assert.Equal(t, 1492, *b1.Rating)

	r1 := findRow(t, src.written, day1, "rapid")
	assert.Equal(t, 1, *r1.Draws)
	// No derivation recorded a duration for the rapid game.
	assert.Nil(t, r1.DurationSeconds)

	// Rapid saw no games on day two: counts stay unknown, the rating
	// carries forward.
	r2 := findRow(t, src.written, day2, "rapid")
	assert.Nil(t, r2.Wins)
	require.NotNil(t, r2.Rating)
	assert.Equal(t, 1600, *r2.Rating)

	b2 := findRow(t, src.written, day2, "blitz")
	assert.Equal(t, 1, *b2.Wins)
	assert.Equal(t, 1501, *b2.Rating)
}

func TestUpdate_Incremental(t *testing.T) {
	last := time.Date(2021, time.October, 5, 0, 0, 0, 0, time.UTC)
	day2 := last.AddDate(0, 0, 1)

	src := &stubSource{
		lastDate: &last,
		ratings:  map[types.Format]int{"blitz": 1492, "rapid": 1600},
		games: []*models.Game{
			// Summarized already, must not be re-read.
			game("1", last.Add(9*time.Hour), "blitz", types.OutcomeWin, 1500),
			game("4", day2.Add(9*time.Hour), "blitz", types.OutcomeWin, 1501),
		},
	}

	n, err := testAggregator(src).Update(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	b2 := findRow(t, src.written, day2, "blitz")
	assert.Equal(t, 1, *b2.Wins)
	assert.Equal(t, 1501, *b2.Rating)

	r2 := findRow(t, src.written, day2, "rapid")
	assert.Nil(t, r2.Wins)
	assert.Equal(t, 1600, *r2.Rating)
}

func TestUpdate_GapDaysCarryRating(t *testing.T) {
	day1 := time.Date(2021, time.October, 5, 0, 0, 0, 0, time.UTC)
	day3 := day1.AddDate(0, 0, 2)

	src := &stubSource{
		games: []*models.Game{
			game("1", day1.Add(9*time.Hour), "blitz", types.OutcomeWin, 1500),
			game("2", day3.Add(9*time.Hour), "blitz", types.OutcomeLoss, 1493),
		},
	}

	n, err := testAggregator(src).Update(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	gap := findRow(t, src.written, day1.AddDate(0, 0, 1), "blitz")
	assert.Nil(t, gap.Wins)
	assert.Nil(t, gap.DurationSeconds)
	require.NotNil(t, gap.Rating)
	assert.Equal(t, 1500, *gap.Rating)
}

func TestUpdate_NoNewGames(t *testing.T) {
	last := time.Date(2021, time.October, 5, 0, 0, 0, 0, time.UTC)
	src := &stubSource{lastDate: &last}

	n, err := testAggregator(src).Update(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, src.written)
}
