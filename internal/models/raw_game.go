package models

import (
	"strings"

	"github.com/chess-tracker/internal/types"
)

// RawPlayer represents one side of a game as reported by the archive API.
type RawPlayer struct {
	Username string  `json:"username"`
	Rating   int     `json:"rating"`
	Result   string  `json:"result"`
	UUID     string  `json:"uuid,omitempty"`
	URL      string  `json:"@id,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// RawGame represents a single game record from a monthly archive payload.
type RawGame struct {
	URL          string          `json:"url"`
	PGN          string          `json:"pgn"`
	TimeControl  string          `json:"time_control"`
	TimeClass    types.TimeClass `json:"time_class"`
	Rules        string          `json:"rules"`
	Rated        bool            `json:"rated"`
	StartTime    int64           `json:"start_time,omitempty"`
	EndTime      int64           `json:"end_time"`
	White        *RawPlayer      `json:"white"`
	Black        *RawPlayer      `json:"black"`
	ECO          string          `json:"eco,omitempty"`
	Tournament   string          `json:"tournament,omitempty"`
	Match        string          `json:"match,omitempty"`
	Accuracies   *RawAccuracies  `json:"accuracies,omitempty"`
	UUID         string          `json:"uuid,omitempty"`
	InitialSetup string          `json:"initial_setup,omitempty"`
	FEN          string          `json:"fen,omitempty"`
}

// RawAccuracies holds the optional engine accuracy pair.
type RawAccuracies struct {
	White float64 `json:"white"`
	Black float64 `json:"black"`
}

// GameID returns the stable identifier for a game: the trailing path
// segment of its URL. Empty when the URL has no path.
func (g *RawGame) GameID() string {
	if g == nil || g.URL == "" {
		return ""
	}
	trimmed := strings.TrimRight(g.URL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}
