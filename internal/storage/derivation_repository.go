package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chess-tracker/internal/models"
)

// DerivationRepository handles move derivation persistence
type DerivationRepository struct {
	pool *pgxpool.Pool
}

// NewDerivationRepository creates a new derivation repository
func NewDerivationRepository(db *PostgresDB) *DerivationRepository {
	return &DerivationRepository{pool: db.Pool()}
}

// BatchInsert inserts multiple derivations, replacing any existing row
// for the same game
func (r *DerivationRepository) BatchInsert(ctx context.Context, derivations []*models.MoveDerivation) error {
	if len(derivations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range derivations {
		batch.Queue(`
			INSERT INTO move_derivations (game_id, moves, clocks, seconds_spent,
				ply_count, move_count, duration_seconds, eco)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (game_id) DO UPDATE SET
				moves = EXCLUDED.moves,
				clocks = EXCLUDED.clocks,
				seconds_spent = EXCLUDED.seconds_spent,
				ply_count = EXCLUDED.ply_count,
				move_count = EXCLUDED.move_count,
				duration_seconds = EXCLUDED.duration_seconds,
				eco = EXCLUDED.eco`,
			d.GameID, d.Moves, d.Clocks, d.SecondsSpent,
			d.PlyCount, d.MoveCount, d.DurationSeconds, d.ECO,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range derivations {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert derivation: %w", err)
		}
	}

	return nil
}

// GetByGameID returns the derivation for a game, or nil if none exists
func (r *DerivationRepository) GetByGameID(ctx context.Context, gameID string) (*models.MoveDerivation, error) {
	var d models.MoveDerivation
	err := r.pool.QueryRow(ctx,
		`SELECT game_id, moves, clocks, seconds_spent, ply_count, move_count,
			duration_seconds, eco
		 FROM move_derivations WHERE game_id = $1`, gameID).Scan(
		&d.GameID, &d.Moves, &d.Clocks, &d.SecondsSpent, &d.PlyCount, &d.MoveCount,
		&d.DurationSeconds, &d.ECO,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get derivation %s: %w", gameID, err)
	}
	return &d, nil
}

// DurationsByGameID returns the recorded duration for each of the given
// games. Games without a derivation or with an unknown duration are
// absent from the result.
func (r *DerivationRepository) DurationsByGameID(ctx context.Context, gameIDs []string) (map[string]float64, error) {
	durations := make(map[string]float64)
	if len(gameIDs) == 0 {
		return durations, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT game_id, duration_seconds FROM move_derivations
		 WHERE game_id = ANY($1) AND duration_seconds IS NOT NULL`,
		gameIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query durations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       string
			duration float64
		)
		if err := rows.Scan(&id, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan duration: %w", err)
		}
		durations[id] = duration
	}

	return durations, rows.Err()
}
