package models

import (
	"time"

	"github.com/chess-tracker/internal/types"
)

// Game represents a normalized, player-perspective game record. Immutable
// once produced except for the callback enrichment fields.
type Game struct {
	GameID         string          `json:"gameId" db:"game_id"`
	URL            string          `json:"url" db:"url"`
	Username       string          `json:"username" db:"username"`
	Opponent       string          `json:"opponent" db:"opponent"`
	PlayedAs       types.Color     `json:"playedAs" db:"played_as"`
	MyRating       int             `json:"myRating" db:"my_rating"`
	OppRating      int             `json:"oppRating" db:"opp_rating"`
	MyResult       string          `json:"myResult" db:"my_result"`
	OppResult      string          `json:"oppResult" db:"opp_result"`
	MyAccuracy     *float64        `json:"myAccuracy,omitempty" db:"my_accuracy"`
	OppAccuracy    *float64        `json:"oppAccuracy,omitempty" db:"opp_accuracy"`
	MyProfileURL   string          `json:"myProfileUrl,omitempty" db:"my_profile_url"`
	Result         *string         `json:"result,omitempty" db:"result"`
	Outcome        types.Outcome   `json:"outcome" db:"outcome"`
	Termination    string          `json:"termination" db:"termination"`
	TimeControl    string          `json:"timeControl" db:"time_control"`
	TimeClass      types.TimeClass `json:"timeClass" db:"time_class"`
	Rules          string          `json:"rules" db:"rules"`
	Format         types.Format    `json:"format" db:"format"`
	Rated          bool            `json:"rated" db:"rated"`
	ECO            string          `json:"eco,omitempty" db:"eco"`
	Tournament     string          `json:"tournament,omitempty" db:"tournament"`
	Match          string          `json:"match,omitempty" db:"match_ref"`
	StartTime      *time.Time      `json:"startTime,omitempty" db:"start_time"`
	EndTime        time.Time       `json:"endTime" db:"end_time"`
	PriorRating    *int            `json:"priorRating,omitempty" db:"prior_rating"`
	RatingBefore   *int            `json:"ratingBefore,omitempty" db:"rating_before"`
	RatingAfter    *int            `json:"ratingAfter,omitempty" db:"rating_after"`
	Analyzed        bool           `json:"analyzed" db:"analyzed"`
	CallbackFetched bool           `json:"callbackFetched" db:"callback_fetched"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
}

// EndDate returns the calendar date (UTC) the game finished on.
func (g *Game) EndDate() time.Time {
	y, m, d := g.EndTime.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
