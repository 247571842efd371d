package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess-tracker/internal/chesscom"
	"github.com/chess-tracker/internal/models"
	"github.com/chess-tracker/internal/storage"
	"github.com/chess-tracker/internal/types"
)

type memoryStore struct {
	games       []*models.Game
	history     map[types.Format][]storage.RatingPoint
	derivations []*models.MoveDerivation
	updates     map[string][2]*int
	analyzed    map[string]bool
	invalidated []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		history:  make(map[types.Format][]storage.RatingPoint),
		updates:  make(map[string][2]*int),
		analyzed: make(map[string]bool),
	}
}

func (m *memoryStore) GetExistingIDs(_ context.Context, _ string) (map[string]bool, error) {
	ids := make(map[string]bool)
	for _, g := range m.games {
		ids[g.GameID] = true
	}
	return ids, nil
}

func (m *memoryStore) RatingHistory(_ context.Context, _ string) (map[types.Format][]storage.RatingPoint, error) {
	out := make(map[types.Format][]storage.RatingPoint, len(m.history))
	for k, v := range m.history {
		out[k] = append([]storage.RatingPoint(nil), v...)
	}
	return out, nil
}

func (m *memoryStore) BatchInsert(_ context.Context, games []*models.Game) error {
	m.games = append(m.games, games...)
	return nil
}

func (m *memoryStore) ListUnenriched(_ context.Context, _ string, limit int) ([]*models.Game, error) {
	var out []*models.Game
	for _, g := range m.games {
		if !g.CallbackFetched && len(out) < limit {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateCallbackRatings(_ context.Context, gameID string, before, after *int, analyzed bool) error {
	m.updates[gameID] = [2]*int{before, after}
	m.analyzed[gameID] = analyzed
	for _, g := range m.games {
		if g.GameID == gameID {
			g.CallbackFetched = true
		}
	}
	return nil
}

func (m *memoryStore) RemoveDuplicates(_ context.Context) (int64, error) {
	return 2, nil
}

func (m *memoryStore) DerivationBatchInsert(_ context.Context, derivations []*models.MoveDerivation) error {
	m.derivations = append(m.derivations, derivations...)
	return nil
}

func (m *memoryStore) InvalidateUser(_ context.Context, username string) error {
	m.invalidated = append(m.invalidated, username)
	return nil
}

type derivationAdapter struct{ store *memoryStore }

func (a derivationAdapter) BatchInsert(ctx context.Context, derivations []*models.MoveDerivation) error {
	return a.store.DerivationBatchInsert(ctx, derivations)
}

func rawGame(id string, end time.Time, myRating int) models.RawGame {
	return models.RawGame{
		URL:         "https://www.chess.com/game/live/" + id,
		TimeControl: "180",
		TimeClass:   types.TimeClassBlitz,
		Rules:       "chess",
		EndTime:     end.Unix(),
		White:       &models.RawPlayer{Username: "alice", Rating: myRating, Result: "win"},
		Black:       &models.RawPlayer{Username: "bob", Rating: 1490, Result: "resigned"},
	}
}

func testIngestor(store *memoryStore) *Ingestor {
	return NewIngestor(store, derivationAdapter{store}, store, zerolog.Nop())
}

func TestIngest_DedupAndPriorRatings(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2021, time.October, 5, 10, 0, 0, 0, time.UTC)
	store.games = append(store.games, &models.Game{GameID: "1", Format: types.Format("blitz")})
	store.history[types.Format("blitz")] = []storage.RatingPoint{
		{Time: base.Add(-time.Hour), Rating: 1480},
	}

	batch := []models.RawGame{
		rawGame("3", base.Add(time.Hour), 1510),
		rawGame("1", base, 1480),
		rawGame("2", base.Add(30*time.Minute), 1500),
	}

	report, err := testIngestor(store).Ingest(context.Background(), "alice", batch)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Skipped)

	// Stored oldest first with ratings threaded through the batch.
	require.Len(t, store.games, 3)
	g2, g3 := store.games[1], store.games[2]
	assert.Equal(t, "2", g2.GameID)
	require.NotNil(t, g2.PriorRating)
	assert.Equal(t, 1480, *g2.PriorRating)
	assert.Equal(t, "3", g3.GameID)
	require.NotNil(t, g3.PriorRating)
	assert.Equal(t, 1500, *g3.PriorRating)

	require.Len(t, store.derivations, 2)
	assert.Equal(t, "2", store.derivations[0].GameID)
	assert.Contains(t, store.invalidated, "alice")
}

func TestIngest_LateArrivalUsesRatingAtThatTime(t *testing.T) {
	store := newMemoryStore()
	store.games = append(store.games,
		&models.Game{GameID: "1", Format: types.Format("blitz")},
		&models.Game{GameID: "2", Format: types.Format("blitz")},
	)
	// Two stored games bracket the gap the new game falls into. Its
	// prior rating must come from the earlier point, not the newest one.
	store.history[types.Format("blitz")] = []storage.RatingPoint{
		{Time: time.Date(2021, time.September, 1, 12, 0, 0, 0, time.UTC), Rating: 1500},
		{Time: time.Date(2021, time.October, 20, 12, 0, 0, 0, time.UTC), Rating: 1600},
	}

	between := time.Date(2021, time.October, 5, 10, 0, 0, 0, time.UTC)
	report, err := testIngestor(store).Ingest(context.Background(), "alice",
		[]models.RawGame{rawGame("3", between, 1520)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	require.Len(t, store.games, 3)
	g := store.games[2]
	assert.Equal(t, "3", g.GameID)
	require.NotNil(t, g.PriorRating)
	assert.Equal(t, 1500, *g.PriorRating)
}

func TestIngest_SkipsMalformedGames(t *testing.T) {
	store := newMemoryStore()

	end := time.Date(2021, time.October, 5, 10, 0, 0, 0, time.UTC)
	bad := rawGame("9", end, 1500)
	bad.White = nil

	report, err := testIngestor(store).Ingest(context.Background(), "alice",
		[]models.RawGame{bad, rawGame("10", end.Add(time.Minute), 1505)})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, store.games, 1)
	assert.Equal(t, "10", store.games[0].GameID)
}

func TestIngest_Idempotent(t *testing.T) {
	store := newMemoryStore()
	end := time.Date(2021, time.October, 5, 10, 0, 0, 0, time.UTC)
	batch := []models.RawGame{rawGame("1", end, 1500)}
	ing := testIngestor(store)

	report, err := ing.Ingest(context.Background(), "alice", batch)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	report, err = ing.Ingest(context.Background(), "alice", batch)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, store.games, 1)
}

func TestIngest_EmptyBatch(t *testing.T) {
	store := newMemoryStore()
	report, err := testIngestor(store).Ingest(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fetched)
	assert.Empty(t, store.invalidated)
}

type stubDetailClient struct {
	details map[string]*chesscom.GameDetail
}

func (s *stubDetailClient) FetchGameDetail(_ context.Context, gameID string, _ bool) (*chesscom.GameDetail, error) {
	return s.details[gameID], nil
}

func detailFor(username string, rating, change int, analyzable bool) *chesscom.GameDetail {
	d := &chesscom.GameDetail{}
	d.Game.IsAnalyzable = analyzable
	d.Players.Bottom = chesscom.CallbackPlayer{Username: username, Rating: rating, RatingChange: change}
	d.Players.Top = chesscom.CallbackPlayer{Username: "bob", Rating: 1490, RatingChange: -change}
	return d
}

func TestEnrich(t *testing.T) {
	store := newMemoryStore()
	store.games = append(store.games,
		&models.Game{GameID: "1", Username: "alice", TimeClass: types.TimeClassBlitz},
		&models.Game{GameID: "2", Username: "alice", TimeClass: types.TimeClassBlitz},
	)

	client := &stubDetailClient{details: map[string]*chesscom.GameDetail{
		"1": detailFor("alice", 1508, 8, true),
		// A zero change is ambiguous, so only the after rating is known.
		"2": detailFor("alice", 1508, 0, false),
	}}

	enriched, err := testIngestor(store).Enrich(context.Background(), client, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, enriched)

	before, after := store.updates["1"][0], store.updates["1"][1]
	require.NotNil(t, before)
	require.NotNil(t, after)
	assert.Equal(t, 1500, *before)
	assert.Equal(t, 1508, *after)

	assert.Nil(t, store.updates["2"][0])
	require.NotNil(t, store.updates["2"][1])
	assert.True(t, store.analyzed["1"])
	assert.False(t, store.analyzed["2"])
	assert.Contains(t, store.invalidated, "alice")
}

func TestRemoveDuplicates(t *testing.T) {
	removed, err := testIngestor(newMemoryStore()).RemoveDuplicates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}
