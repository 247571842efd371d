package models

import "time"

// SyncStatus represents the ingestion cursor for an account: how far the
// fetcher has read into the remote archives, plus the change-detection
// token for the current month's archive. Read at the start of every
// incremental fetch; written only after a successful ingestion batch.
type SyncStatus struct {
	Username        string     `json:"username" db:"username"`
	LastGameURL     string     `json:"lastGameUrl" db:"last_game_url"`
	LastGameEndTime *time.Time `json:"lastGameEndTime,omitempty" db:"last_game_end_time"`
	ArchiveETag     string     `json:"archiveEtag,omitempty" db:"archive_etag"`
	InitialSyncDone bool       `json:"initialSyncDone" db:"initial_sync_done"`
	LastSyncAt      *time.Time `json:"lastSyncAt,omitempty" db:"last_sync_at"`
}
