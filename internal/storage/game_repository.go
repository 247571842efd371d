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

// GameRepository handles game persistence
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *PostgresDB) *GameRepository {
	return &GameRepository{pool: db.Pool()}
}

const gameColumns = `game_id, url, username, opponent, played_as, my_rating, opp_rating,
	my_result, opp_result, my_accuracy, opp_accuracy, my_profile_url, result, outcome,
	termination, time_control, time_class, rules, format, rated, eco, tournament,
	match_ref, start_time, end_time, prior_rating, rating_before, rating_after,
	analyzed, callback_fetched, created_at`

func scanGame(row pgx.Row) (*models.Game, error) {
	var g models.Game
	err := row.Scan(
		&g.GameID, &g.URL, &g.Username, &g.Opponent, &g.PlayedAs, &g.MyRating, &g.OppRating,
		&g.MyResult, &g.OppResult, &g.MyAccuracy, &g.OppAccuracy, &g.MyProfileURL, &g.Result, &g.Outcome,
		&g.Termination, &g.TimeControl, &g.TimeClass, &g.Rules, &g.Format, &g.Rated, &g.ECO, &g.Tournament,
		&g.Match, &g.StartTime, &g.EndTime, &g.PriorRating, &g.RatingBefore, &g.RatingAfter,
		&g.Analyzed, &g.CallbackFetched, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// BatchInsert inserts multiple games in a single batch
func (r *GameRepository) BatchInsert(ctx context.Context, games []*models.Game) error {
	if len(games) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, g := range games {
		batch.Queue(`
			INSERT INTO games (game_id, url, username, opponent, played_as, my_rating, opp_rating,
				my_result, opp_result, my_accuracy, opp_accuracy, my_profile_url, result, outcome,
				termination, time_control, time_class, rules, format, rated, eco, tournament,
				match_ref, start_time, end_time, prior_rating, rating_before, rating_after,
				analyzed, callback_fetched)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
				$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)`,
			g.GameID, g.URL, g.Username, g.Opponent, g.PlayedAs, g.MyRating, g.OppRating,
			g.MyResult, g.OppResult, g.MyAccuracy, g.OppAccuracy, g.MyProfileURL, g.Result, g.Outcome,
			g.Termination, g.TimeControl, g.TimeClass, g.Rules, g.Format, g.Rated, g.ECO, g.Tournament,
			g.Match, g.StartTime, g.EndTime, g.PriorRating, g.RatingBefore, g.RatingAfter,
			g.Analyzed, g.CallbackFetched,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range games {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert game: %w", err)
		}
	}

	return nil
}

// GetExistingIDs returns the set of game IDs already stored for a user
func (r *GameRepository) GetExistingIDs(ctx context.Context, username string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT game_id FROM games WHERE username = $1`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing game ids: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		existing[id] = true
	}

	return existing, rows.Err()
}

// GetByID returns a single game by its remote ID
func (r *GameRepository) GetByID(ctx context.Context, gameID string) (*models.Game, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE game_id = $1 ORDER BY id LIMIT 1`, gameID)

	g, err := scanGame(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %s: %w", gameID, err)
	}
	return g, nil
}

// List returns games for a user ordered by end time descending
func (r *GameRepository) List(ctx context.Context, username string, limit, offset int) ([]*models.Game, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE username = $1
		 ORDER BY end_time DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		username, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// ListBetween returns games for a user whose end time falls in [from, to)
func (r *GameRepository) ListBetween(ctx context.Context, username string, from, to time.Time) ([]*models.Game, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE username = $1 AND end_time >= $2 AND end_time < $3
		 ORDER BY end_time ASC, id ASC`,
		username, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list games in range: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

func collectGames(rows pgx.Rows) ([]*models.Game, error) {
	var games []*models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// Count returns the number of stored games for a user
func (r *GameRepository) Count(ctx context.Context, username string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM games WHERE username = $1`, username).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return count, nil
}

// RatingPoint is one entry of a per-format rating timeline.
type RatingPoint struct {
	Time   time.Time `json:"time"`
	Rating int       `json:"rating"`
}

// RatingHistory returns the per-format rating timeline for a user,
// ordered chronologically within each format.
func (r *GameRepository) RatingHistory(ctx context.Context, username string) (map[types.Format][]RatingPoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT format, end_time, my_rating FROM games
		 WHERE username = $1
		 ORDER BY end_time ASC, id ASC`,
		username)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating history: %w", err)
	}
	defer rows.Close()

	history := make(map[types.Format][]RatingPoint)
	for rows.Next() {
		var (
			format types.Format
			point  RatingPoint
		)
		if err := rows.Scan(&format, &point.Time, &point.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating point: %w", err)
		}
		history[format] = append(history[format], point)
	}

	return history, rows.Err()
}

// UpdateCallbackRatings records the enrichment fields fetched from the
// game detail endpoint.
func (r *GameRepository) UpdateCallbackRatings(ctx context.Context, gameID string, ratingBefore, ratingAfter *int, analyzed bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE games
		 SET rating_before = $2, rating_after = $3, analyzed = $4, callback_fetched = TRUE
		 WHERE game_id = $1`,
		gameID, ratingBefore, ratingAfter, analyzed)
	if err != nil {
		return fmt.Errorf("failed to update callback ratings for %s: %w", gameID, err)
	}
	return nil
}

// ListUnenriched returns games that have not been through callback
// enrichment yet, oldest first.
func (r *GameRepository) ListUnenriched(ctx context.Context, username string, limit int) ([]*models.Game, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE username = $1 AND callback_fetched = FALSE
		 ORDER BY end_time ASC, id ASC
		 LIMIT $2`,
		username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unenriched games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// RemoveDuplicates deletes redundant copies of games that share a
// game_id, keeping the earliest inserted row. Returns the number of
// rows removed.
func (r *GameRepository) RemoveDuplicates(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM games a
		 USING games b
		 WHERE a.game_id = b.game_id AND a.id > b.id`)
	if err != nil {
		return 0, fmt.Errorf("failed to remove duplicate games: %w", err)
	}
	return tag.RowsAffected(), nil
}
