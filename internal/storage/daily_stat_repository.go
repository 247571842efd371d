package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chess-tracker/internal/models"
	"github.com/chess-tracker/internal/types"
)

// DailyStatRepository handles daily summary persistence
type DailyStatRepository struct {
	pool *pgxpool.Pool
}

// NewDailyStatRepository creates a new daily stat repository
func NewDailyStatRepository(db *PostgresDB) *DailyStatRepository {
	return &DailyStatRepository{pool: db.Pool()}
}

// BatchUpsert writes daily rows, overwriting any existing row for the
// same date and format
func (r *DailyStatRepository) BatchUpsert(ctx context.Context, stats []*models.DailyStat) error {
	if len(stats) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stats {
		batch.Queue(`
			INSERT INTO daily_stats (date, format, wins, losses, draws, duration_seconds, rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (date, format) DO UPDATE SET
				wins = EXCLUDED.wins,
				losses = EXCLUDED.losses,
				draws = EXCLUDED.draws,
				duration_seconds = EXCLUDED.duration_seconds,
				rating = EXCLUDED.rating`,
			s.Date, s.Format, s.Wins, s.Losses, s.Draws, s.DurationSeconds, s.Rating,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range stats {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert daily stat: %w", err)
		}
	}

	return nil
}

// LastDate returns the most recent summarized date, or nil when the
// table is empty
func (r *DailyStatRepository) LastDate(ctx context.Context) (*time.Time, error) {
	var date *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(date) FROM daily_stats`).Scan(&date)
	if err != nil {
		return nil, fmt.Errorf("failed to get last summarized date: %w", err)
	}
	return date, nil
}

// LatestRatings returns the most recent known rating per format, used to
// seed carry-forward when extending the summary window
func (r *DailyStatRepository) LatestRatings(ctx context.Context) (map[types.Format]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (format) format, rating FROM daily_stats
		 WHERE rating IS NOT NULL
		 ORDER BY format, date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest ratings: %w", err)
	}
	defer rows.Close()

	ratings := make(map[types.Format]int)
	for rows.Next() {
		var (
			format types.Format
			rating int
		)
		if err := rows.Scan(&format, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings[format] = rating
	}

	return ratings, rows.Err()
}

// Formats returns all formats that have ever appeared in the summary
func (r *DailyStatRepository) Formats(ctx context.Context) ([]types.Format, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT format FROM daily_stats ORDER BY format`)
	if err != nil {
		return nil, fmt.Errorf("failed to query formats: %w", err)
	}
	defer rows.Close()

	var formats []types.Format
	for rows.Next() {
		var f types.Format
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan format: %w", err)
		}
		formats = append(formats, f)
	}

	return formats, rows.Err()
}

// ListRange returns daily rows with date in [from, to], ordered by date
// then format
func (r *DailyStatRepository) ListRange(ctx context.Context, from, to time.Time) ([]*models.DailyStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT date, format, wins, losses, draws, duration_seconds, rating
		 FROM daily_stats
		 WHERE date >= $1 AND date <= $2
		 ORDER BY date ASC, format ASC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily stats: %w", err)
	}
	defer rows.Close()

	var stats []*models.DailyStat
	for rows.Next() {
		var s models.DailyStat
		if err := rows.Scan(&s.Date, &s.Format, &s.Wins, &s.Losses, &s.Draws,
			&s.DurationSeconds, &s.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, &s)
	}

	return stats, rows.Err()
}
