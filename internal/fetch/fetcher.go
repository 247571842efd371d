// Package fetch drives the archive sync: full backfill on first run,
// cursor-based incremental catch-up afterwards.
package fetch

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/chess-tracker/internal/chesscom"
	"github.com/chess-tracker/internal/models"
)

// ArchiveClient is the slice of the remote API the fetcher needs.
type ArchiveClient interface {
	ListArchives(ctx context.Context, username string) ([]string, error)
	FetchArchive(ctx context.Context, url, etag string) (*chesscom.ArchiveResult, error)
	ArchiveURL(username string, year int, month time.Month) string
}

// Result carries the new games from one sync pass plus the candidate
// cursor. The caller persists the cursor only after the games have been
// ingested, so a failed ingest leaves the old cursor in place and the
// next pass re-reads the same window.
type Result struct {
	Games  []models.RawGame
	Cursor models.SyncStatus
}

// Fetcher reads monthly archives sequentially. Calls within one pass
// share the client's courtesy throttle; passes never overlap (the
// caller serializes them).
type Fetcher struct {
	client ArchiveClient
	logger zerolog.Logger
	now    func() time.Time
}

// NewFetcher creates a fetcher.
func NewFetcher(client ArchiveClient, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger.With().Str("component", "fetcher").Logger(),
		now:    time.Now,
	}
}

// Sync runs the appropriate pass for the current cursor state: a full
// backfill when no completed initial sync exists, an incremental
// catch-up otherwise.
func (f *Fetcher) Sync(ctx context.Context, username string, status *models.SyncStatus) (*Result, error) {
	if status == nil || !status.InitialSyncDone {
		return f.InitialSync(ctx, username)
	}
	return f.IncrementalSync(ctx, username, status)
}

// InitialSync walks every monthly archive oldest first and returns the
// full history. The candidate cursor points at the chronologically last
// game and records the current month's change token.
func (f *Fetcher) InitialSync(ctx context.Context, username string) (*Result, error) {
	archives, err := f.client.ListArchives(ctx, username)
	if err != nil {
		return nil, err
	}

	f.logger.Info().
		Str("username", username).
		Int("archives", len(archives)).
		Msg("starting initial sync")

	var (
		games       []models.RawGame
		currentETag string
	)
	currentURL := f.currentMonthURL(username)

	for _, archiveURL := range archives {
		result, err := f.client.FetchArchive(ctx, archiveURL, "")
		if err != nil {
			return nil, err
		}
		games = append(games, result.Games...)
		if archiveURL == currentURL {
			currentETag = result.ETag
		}
	}

	sortByEndTime(games)

	cursor := models.SyncStatus{
		Username:        username,
		ArchiveETag:     currentETag,
		InitialSyncDone: true,
	}
	applyCursor(&cursor, games, f.now())

	f.logger.Info().
		Str("username", username).
		Int("games", len(games)).
		Msg("initial sync fetched")

	return &Result{Games: games, Cursor: cursor}, nil
}

// IncrementalSync fetches the current month (conditionally, using the
// stored change token) plus the cursor's month when the cursor has
// fallen behind a month boundary, then keeps only games past the
// cursor.
func (f *Fetcher) IncrementalSync(ctx context.Context, username string, status *models.SyncStatus) (*Result, error) {
	now := f.now().UTC()
	currentURL := f.client.ArchiveURL(username, now.Year(), now.Month())

	var batch []models.RawGame

	// A game played on the last day of a month can land in that month's
	// archive after the cursor moved on, so re-read the cursor's month
	// when it differs from the current one.
	if prior := f.priorMonthURL(username, status, now); prior != "" && prior != currentURL {
		result, err := f.client.FetchArchive(ctx, prior, "")
		if err != nil {
			return nil, err
		}
		batch = append(batch, result.Games...)
	}

	result, err := f.client.FetchArchive(ctx, currentURL, status.ArchiveETag)
	if err != nil {
		return nil, err
	}

	cursor := *status
	cursor.ArchiveETag = result.ETag

	if result.NotModified && len(batch) == 0 {
		f.logger.Debug().
			Str("username", username).
			Msg("archive unchanged")
		cursor.LastSyncAt = ptrTime(f.now())
		return &Result{Cursor: cursor}, nil
	}
	batch = append(batch, result.Games...)

	sortByEndTime(batch)
	fresh := afterCursor(batch, status.LastGameURL)
	applyCursor(&cursor, fresh, f.now())

	f.logger.Info().
		Str("username", username).
		Int("fetched", len(batch)).
		Int("new", len(fresh)).
		Msg("incremental sync fetched")

	return &Result{Games: fresh, Cursor: cursor}, nil
}

func (f *Fetcher) currentMonthURL(username string) string {
	now := f.now().UTC()
	return f.client.ArchiveURL(username, now.Year(), now.Month())
}

// priorMonthURL returns the archive URL of the cursor's month, or empty
// when the cursor has no timestamp.
func (f *Fetcher) priorMonthURL(username string, status *models.SyncStatus, now time.Time) string {
	if status.LastGameEndTime == nil {
		return ""
	}
	last := status.LastGameEndTime.UTC()
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return ""
	}
	return f.client.ArchiveURL(username, last.Year(), last.Month())
}

// afterCursor returns the games that come strictly after the cursor
// game in a chronologically sorted batch. When the cursor game is not
// present the whole batch is new.
func afterCursor(sorted []models.RawGame, lastURL string) []models.RawGame {
	if lastURL == "" {
		return sorted
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].URL == lastURL {
			return sorted[i+1:]
		}
	}
	return sorted
}

func applyCursor(cursor *models.SyncStatus, games []models.RawGame, at time.Time) {
	cursor.LastSyncAt = ptrTime(at)
	if len(games) == 0 {
		return
	}
	last := games[len(games)-1]
	end := time.Unix(last.EndTime, 0).UTC()
	cursor.LastGameURL = last.URL
	cursor.LastGameEndTime = &end
}

func sortByEndTime(games []models.RawGame) {
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].EndTime < games[j].EndTime
	})
}

func ptrTime(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
