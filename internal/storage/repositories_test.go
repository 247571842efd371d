package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess-tracker/internal/config"
	"github.com/chess-tracker/internal/models"
	"github.com/chess-tracker/internal/types"
)

// testDB connects to the Postgres instance described by the environment.
// Skipped in short mode and when no database is reachable.
func testDB(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("no configuration for integration test: %v", err)
	}

	db, err := NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestSyncStatusRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewSyncStatusRepository(db)
	ctx := context.Background()

	username := "it-sync-" + time.Now().UTC().Format("20060102150405")
	end := time.Date(2021, time.October, 5, 10, 0, 0, 0, time.UTC)

	status := &models.SyncStatus{
		Username:        username,
		LastGameURL:     "https://www.chess.com/game/live/1",
		LastGameEndTime: &end,
		ArchiveETag:     `"abc"`,
		InitialSyncDone: true,
	}
	require.NoError(t, repo.Upsert(ctx, status))

	got, err := repo.Get(ctx, username)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, status.LastGameURL, got.LastGameURL)
	assert.Equal(t, status.ArchiveETag, got.ArchiveETag)
	assert.True(t, got.InitialSyncDone)
	require.NotNil(t, got.LastGameEndTime)
	assert.True(t, got.LastGameEndTime.Equal(end))

	// Upsert replaces the existing row.
	status.ArchiveETag = `"def"`
	require.NoError(t, repo.Upsert(ctx, status))
	got, err = repo.Get(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, `"def"`, got.ArchiveETag)
}

func TestSyncStatusGet_Missing(t *testing.T) {
	db := testDB(t)
	repo := NewSyncStatusRepository(db)

	got, err := repo.Get(context.Background(), "it-never-synced")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGameInsertAndList(t *testing.T) {
	db := testDB(t)
	repo := NewGameRepository(db)
	ctx := context.Background()

	username := "it-games-" + time.Now().UTC().Format("20060102150405")
	end := time.Date(2021, time.October, 5, 10, 0, 0, 0, time.UTC)

	games := []*models.Game{
		{
			GameID: "it-1", URL: "https://www.chess.com/game/live/it-1",
			Username: username, Opponent: "bob", PlayedAs: types.ColorWhite,
			MyRating: 1500, OppRating: 1490, MyResult: "win", OppResult: "resigned",
			Outcome: types.OutcomeWin, TimeClass: types.TimeClassBlitz,
			Rules: "chess", Format: "blitz", EndTime: end,
		},
		{
			GameID: "it-2", URL: "https://www.chess.com/game/live/it-2",
			Username: username, Opponent: "bob", PlayedAs: types.ColorBlack,
			MyRating: 1493, OppRating: 1497, MyResult: "timeout", OppResult: "win",
			Outcome: types.OutcomeLoss, TimeClass: types.TimeClassBlitz,
			Rules: "chess", Format: "blitz", EndTime: end.Add(time.Hour),
		},
	}
	require.NoError(t, repo.BatchInsert(ctx, games))

	existing, err := repo.GetExistingIDs(ctx, username)
	require.NoError(t, err)
	assert.True(t, existing["it-1"])
	assert.True(t, existing["it-2"])

	listed, err := repo.List(ctx, username, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	// Newest first.
	assert.Equal(t, "it-2", listed[0].GameID)

	history, err := repo.RatingHistory(ctx, username)
	require.NoError(t, err)
	points := history["blitz"]
	require.Len(t, points, 2)
	assert.Equal(t, 1500, points[0].Rating)
	assert.Equal(t, 1493, points[1].Rating)
}
