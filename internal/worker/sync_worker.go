// Package worker runs the background polling loop that keeps the local
// game history current.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/chess-tracker/internal/errors"
	"github.com/chess-tracker/internal/service"
)

// SyncWorker polls the archive API on a fixed interval. Passes never
// overlap: the ticker fires into a single loop and the sync service
// serializes runs besides.
type SyncWorker struct {
	syncService  *service.SyncService
	pollInterval time.Duration
	logger       zerolog.Logger

	running      bool
	lastPollTime time.Time
	mu           sync.RWMutex
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewSyncWorker creates a sync worker.
func NewSyncWorker(syncService *service.SyncService, pollInterval time.Duration, logger zerolog.Logger) (*SyncWorker, error) {
	if syncService == nil {
		return nil, fmt.Errorf("sync service cannot be nil")
	}
	if pollInterval <= 0 {
		pollInterval = 15 * time.Minute
	}
	if pollInterval < time.Minute {
		return nil, fmt.Errorf("poll interval must be at least a minute, got %v", pollInterval)
	}

	return &SyncWorker{
		syncService:  syncService,
		pollInterval: pollInterval,
		logger:       logger.With().Str("component", "worker").Logger(),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins polling. The first sync pass runs immediately so a fresh
// deployment does not wait a full interval for its backfill.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Str("username", w.syncService.Username()).
		Dur("poll_interval", w.pollInterval).
		Msg("starting sync worker")

	go w.pollLoop(ctx)

	return nil
}

// Stop gracefully stops the worker, waiting for an in-flight pass.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is not running")
	}
	w.mu.Unlock()

	w.logger.Info().Msg("stopping sync worker")
	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.Info().Msg("sync worker stopped")
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("stop timeout")
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// IsRunning reports whether the polling loop is active.
func (w *SyncWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// LastPollTime returns when the loop last attempted a pass.
func (w *SyncWorker) LastPollTime() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastPollTime
}

func (w *SyncWorker) pollLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("context cancelled")
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

// runPass executes one sync pass. Transport failures leave the cursor
// untouched; the next tick re-reads the same window.
func (w *SyncWorker) runPass(ctx context.Context) {
	w.mu.Lock()
	w.lastPollTime = time.Now()
	w.mu.Unlock()

	report, err := w.syncService.RunOnce(ctx)
	if err != nil {
		event := w.logger.Error()
		if !apperrors.IsFatal(err) {
			event = w.logger.Warn()
		}
		event.Err(err).Msg("sync pass failed")
		return
	}

	if report.Inserted > 0 || report.InitialSync {
		w.logger.Info().
			Str("run_id", report.RunID).
			Int("inserted", report.Inserted).
			Bool("initial", report.InitialSync).
			Msg("sync pass completed")
	}
}
