package models

// MoveDerivation holds the per-move timing analytics extracted from a
// game's PGN move text. The three slices are parallel: one entry per ply.
type MoveDerivation struct {
	GameID          string    `json:"gameId" db:"game_id"`
	Moves           []string  `json:"moves" db:"moves"`
	Clocks          []float64 `json:"clocks" db:"clocks"`
	SecondsSpent    []float64 `json:"secondsSpent" db:"seconds_spent"`
	PlyCount        int       `json:"plyCount" db:"ply_count"`
	MoveCount       int       `json:"moveCount" db:"move_count"`
	DurationSeconds *float64  `json:"durationSeconds,omitempty" db:"duration_seconds"`
	ECO             string    `json:"eco,omitempty" db:"eco"`
}
