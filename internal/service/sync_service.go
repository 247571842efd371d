// Package service wires the sync pipeline and the read paths behind
// small interfaces so the API server, the worker and the CLIs share one
// implementation.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chess-tracker/internal/fetch"
	"github.com/chess-tracker/internal/ingest"
	"github.com/chess-tracker/internal/models"
)

// Fetcher runs one archive sync pass.
type Fetcher interface {
	Sync(ctx context.Context, username string, status *models.SyncStatus) (*fetch.Result, error)
	InitialSync(ctx context.Context, username string) (*fetch.Result, error)
}

// Ingestor writes fetched games and runs maintenance passes.
type Ingestor interface {
	Ingest(ctx context.Context, username string, raws []models.RawGame) (*ingest.Report, error)
	Enrich(ctx context.Context, client ingest.DetailClient, username string, limit int) (int, error)
	RemoveDuplicates(ctx context.Context) (int64, error)
}

// Aggregator extends the daily summary.
type Aggregator interface {
	Update(ctx context.Context, username string) (int, error)
}

// CursorStore persists the sync cursor.
type CursorStore interface {
	Get(ctx context.Context, username string) (*models.SyncStatus, error)
	Upsert(ctx context.Context, status *models.SyncStatus) error
}

// RunReport summarizes one complete sync run.
type RunReport struct {
	RunID       string    `json:"runId"`
	Username    string    `json:"username"`
	Fetched     int       `json:"fetched"`
	Inserted    int       `json:"inserted"`
	Skipped     int       `json:"skipped"`
	Enriched    int       `json:"enriched"`
	SummaryRows int       `json:"summaryRows"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	InitialSync bool      `json:"initialSync"`
}

// SyncService drives the pipeline: fetch, ingest, persist the cursor,
// then the best-effort enrichment and summary passes. Runs are
// serialized; a second caller blocks until the first finishes.
type SyncService struct {
	fetcher    Fetcher
	ingestor   Ingestor
	aggregator Aggregator
	cursors    CursorStore
	detail     ingest.DetailClient
	username   string
	enrich     bool
	logger     zerolog.Logger

	mu sync.Mutex
}

// NewSyncService creates a sync service for one tracked account. The
// detail client may be nil when enrichment is disabled.
func NewSyncService(fetcher Fetcher, ingestor Ingestor, aggregator Aggregator, cursors CursorStore,
	detail ingest.DetailClient, username string, enrich bool, logger zerolog.Logger) *SyncService {
	return &SyncService{
		fetcher:    fetcher,
		ingestor:   ingestor,
		aggregator: aggregator,
		cursors:    cursors,
		detail:     detail,
		username:   username,
		enrich:     enrich && detail != nil,
		logger:     logger.With().Str("component", "sync").Logger(),
	}
}

// Username returns the tracked account name.
func (s *SyncService) Username() string {
	return s.username
}

// RunOnce executes one full sync pass. The cursor is written only after
// the fetched games are stored, so a failed run is re-read next time.
func (s *SyncService) RunOnce(ctx context.Context) (*RunReport, error) {
	return s.run(ctx, false)
}

// RunFull forces a complete re-read of every archive. Already stored
// games are skipped by ingestion, so this is safe on a populated
// database.
func (s *SyncService) RunFull(ctx context.Context) (*RunReport, error) {
	return s.run(ctx, true)
}

func (s *SyncService) run(ctx context.Context, full bool) (*RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &RunReport{
		RunID:     uuid.New().String(),
		Username:  s.username,
		StartedAt: time.Now().UTC(),
	}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()

	status, err := s.cursors.Get(ctx, s.username)
	if err != nil {
		return nil, err
	}
	report.InitialSync = full || status == nil || !status.InitialSyncDone

	var result *fetch.Result
	if full {
		result, err = s.fetcher.InitialSync(ctx, s.username)
	} else {
		result, err = s.fetcher.Sync(ctx, s.username, status)
	}
	if err != nil {
		return nil, err
	}

	ingestReport, err := s.ingestor.Ingest(ctx, s.username, result.Games)
	if err != nil {
		return nil, err
	}
	report.Fetched = ingestReport.Fetched
	report.Inserted = ingestReport.Inserted
	report.Skipped = ingestReport.Skipped

	cursor := result.Cursor
	if err := s.cursors.Upsert(ctx, &cursor); err != nil {
		return nil, err
	}

	if s.enrich {
		enriched, err := s.ingestor.Enrich(ctx, s.detail, s.username, enrichBatchLimit)
		if err != nil {
			// Enrichment is best effort; the games stay queued.
			logger.Warn().Err(err).Msg("enrichment pass aborted")
		}
		report.Enriched = enriched
	}

	rows, err := s.aggregator.Update(ctx, s.username)
	if err != nil {
		return nil, err
	}
	report.SummaryRows = rows
	report.FinishedAt = time.Now().UTC()

	logger.Info().
		Int("fetched", report.Fetched).
		Int("inserted", report.Inserted).
		Int("enriched", report.Enriched).
		Int("summary_rows", report.SummaryRows).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("sync run finished")

	return report, nil
}

// enrichBatchLimit caps callback calls per run so a long backlog drains
// across polls instead of hammering the endpoint.
const enrichBatchLimit = 50

// RemoveDuplicates runs the stored-game dedup maintenance pass.
func (s *SyncService) RemoveDuplicates(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ingestor.RemoveDuplicates(ctx)
}
