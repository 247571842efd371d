// Package types provides common type definitions for the game tracker system.
package types

import "strings"

// TimeClass represents the pace bucket a game was played at.
type TimeClass string

const (
	// TimeClassBullet represents games faster than 3 minutes per side
	TimeClassBullet TimeClass = "bullet"
	// TimeClassBlitz represents games between 3 and 10 minutes per side
	TimeClassBlitz TimeClass = "blitz"
	// TimeClassRapid represents games between 10 and 60 minutes per side
	TimeClassRapid TimeClass = "rapid"
	// TimeClassDaily represents correspondence games with a per-move budget
	TimeClassDaily TimeClass = "daily"
)

// Color represents the side the perspective player held in a game.
type Color string

const (
	// ColorWhite represents the white pieces
	ColorWhite Color = "white"
	// ColorBlack represents the black pieces
	ColorBlack Color = "black"
)

// Outcome represents the game result from the perspective player's side.
type Outcome string

const (
	// OutcomeWin represents a won game
	OutcomeWin Outcome = "win"
	// OutcomeLoss represents a lost game
	OutcomeLoss Outcome = "loss"
	// OutcomeDraw represents a drawn game
	OutcomeDraw Outcome = "draw"
	// OutcomeUnknown represents a result that could not be classified
	OutcomeUnknown Outcome = "unknown"
)

// Canonical result strings as reported in PGN tags.
const (
	ResultWhiteWins = "1-0"
	ResultBlackWins = "0-1"
	ResultDraw      = "1/2-1/2"
)

// Format buckets statistics by ruleset and time class (e.g. "blitz",
// "daily960"). Standard chess uses the bare time class; variant rulesets
// append their suffix.
type Format string

// FormatFor derives the statistics bucket for a ruleset and time class.
func FormatFor(rules string, timeClass TimeClass) Format {
	if rules == "" || rules == "chess" {
		return Format(timeClass)
	}
	return Format(string(timeClass) + strings.TrimPrefix(rules, "chess"))
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
