package models

import (
	"time"

	"github.com/chess-tracker/internal/types"
)

// DailyStat represents one row of the rolling per-day summary for a single
// format. Count fields are nil on days the format saw no games; the rating
// column still carries the most recent known value forward.
type DailyStat struct {
	Date            time.Time    `json:"date" db:"date"`
	Format          types.Format `json:"format" db:"format"`
	Wins            *int         `json:"wins,omitempty" db:"wins"`
	Losses          *int         `json:"losses,omitempty" db:"losses"`
	Draws           *int         `json:"draws,omitempty" db:"draws"`
	DurationSeconds *float64     `json:"durationSeconds,omitempty" db:"duration_seconds"`
	Rating          *int         `json:"rating,omitempty" db:"rating"`
}
