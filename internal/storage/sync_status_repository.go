package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chess-tracker/internal/models"
)

// SyncStatusRepository handles the ingestion cursor
type SyncStatusRepository struct {
	pool *pgxpool.Pool
}

// NewSyncStatusRepository creates a new sync status repository
func NewSyncStatusRepository(db *PostgresDB) *SyncStatusRepository {
	return &SyncStatusRepository{pool: db.Pool()}
}

// Get returns the cursor for a user, or nil when no sync has completed yet
func (r *SyncStatusRepository) Get(ctx context.Context, username string) (*models.SyncStatus, error) {
	var s models.SyncStatus
	err := r.pool.QueryRow(ctx,
		`SELECT username, last_game_url, last_game_end_time, archive_etag,
			initial_sync_done, last_sync_at
		 FROM sync_status WHERE username = $1`, username).Scan(
		&s.Username, &s.LastGameURL, &s.LastGameEndTime, &s.ArchiveETag,
		&s.InitialSyncDone, &s.LastSyncAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	return &s, nil
}

// Upsert writes the cursor for a user
func (r *SyncStatusRepository) Upsert(ctx context.Context, status *models.SyncStatus) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_status (username, last_game_url, last_game_end_time,
			archive_etag, initial_sync_done, last_sync_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (username) DO UPDATE SET
			last_game_url = EXCLUDED.last_game_url,
			last_game_end_time = EXCLUDED.last_game_end_time,
			archive_etag = EXCLUDED.archive_etag,
			initial_sync_done = EXCLUDED.initial_sync_done,
			last_sync_at = EXCLUDED.last_sync_at`,
		status.Username, status.LastGameURL, status.LastGameEndTime,
		status.ArchiveETag, status.InitialSyncDone, status.LastSyncAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sync status: %w", err)
	}
	return nil
}
