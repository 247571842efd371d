// Package normalize converts raw archive game records into
// player-perspective records.
package normalize

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/chess-tracker/internal/errors"
	"github.com/chess-tracker/internal/models"
	"github.com/chess-tracker/internal/types"
)

// drawResults is the fixed set of result codes that mean a draw, on either
// side.
var drawResults = map[string]bool{
	"agreed":             true,
	"repetition":         true,
	"stalemate":          true,
	"insufficient":       true,
	"50move":             true,
	"timevsinsufficient": true,
}

// lossResults is the fixed set of result codes that mean the reporting side
// lost.
var lossResults = map[string]bool{
	"lose":       true,
	"checkmated": true,
	"timeout":    true,
	"resigned":   true,
	"abandoned":  true,
}

// Normalize converts one raw game into the perspective of username. It
// fails when the record or either player sub-record is absent, or when the
// username matches neither side (case-insensitive).
func Normalize(raw *models.RawGame, username string) (*models.Game, error) {
	if raw == nil {
		return nil, apperrors.NewInputError("", "missing game record")
	}
	gameID := raw.GameID()
	if username == "" {
		return nil, apperrors.NewInputError(gameID, "missing perspective username")
	}
	if raw.White == nil || raw.Black == nil {
		return nil, apperrors.NewInputError(gameID, "missing player record")
	}

	var me, opp *models.RawPlayer
	var playedAs types.Color
	switch {
	case strings.EqualFold(raw.White.Username, username):
		me, opp, playedAs = raw.White, raw.Black, types.ColorWhite
	case strings.EqualFold(raw.Black.Username, username):
		me, opp, playedAs = raw.Black, raw.White, types.ColorBlack
	default:
		return nil, apperrors.NewConsistencyError(gameID, username)
	}

	game := &models.Game{
		GameID:       gameID,
		URL:          raw.URL,
		Username:     me.Username,
		Opponent:     opp.Username,
		PlayedAs:     playedAs,
		MyRating:     me.Rating,
		OppRating:    opp.Rating,
		MyResult:     me.Result,
		OppResult:    opp.Result,
		MyProfileURL: me.URL,
		TimeControl:  raw.TimeControl,
		TimeClass:    raw.TimeClass,
		Rules:        raw.Rules,
		Format:       types.FormatFor(raw.Rules, raw.TimeClass),
		Rated:        raw.Rated,
		ECO:          raw.ECO,
		Tournament:   raw.Tournament,
		Match:        raw.Match,
		EndTime:      time.Unix(raw.EndTime, 0).UTC(),
	}

	if raw.StartTime > 0 {
		start := time.Unix(raw.StartTime, 0).UTC()
		game.StartTime = &start
	}
	if raw.Accuracies != nil {
		myAcc, oppAcc := raw.Accuracies.White, raw.Accuracies.Black
		if playedAs == types.ColorBlack {
			myAcc, oppAcc = oppAcc, myAcc
		}
		game.MyAccuracy = &myAcc
		game.OppAccuracy = &oppAcc
	}

	if result := canonicalResult(raw.White.Result, raw.Black.Result); result != "" {
		game.Result = &result
	}
	game.Outcome = classifyOutcome(me.Result)
	game.Termination = termination(game.Outcome, me.Result, opp.Result)

	return game, nil
}

// Batch normalizes a sequence of raw games, dropping individual failures
// and preserving the order of the survivors.
func Batch(raws []models.RawGame, username string, logger zerolog.Logger) []*models.Game {
	games := make([]*models.Game, 0, len(raws))
	for i := range raws {
		game, err := Normalize(&raws[i], username)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("game_id", raws[i].GameID()).
				Msg("skipping game that failed to normalize")
			continue
		}
		games = append(games, game)
	}
	return games
}

// canonicalResult derives the PGN-style result string, or "" when the
// result cannot be determined yet.
func canonicalResult(whiteResult, blackResult string) string {
	switch {
	case whiteResult == "win":
		return types.ResultWhiteWins
	case blackResult == "win":
		return types.ResultBlackWins
	case drawResults[whiteResult] || drawResults[blackResult]:
		return types.ResultDraw
	default:
		return ""
	}
}

// classifyOutcome maps the perspective player's result code to an outcome.
// Unhandled codes stay unknown rather than being guessed.
func classifyOutcome(myResult string) types.Outcome {
	switch {
	case myResult == "win":
		return types.OutcomeWin
	case lossResults[myResult]:
		return types.OutcomeLoss
	case drawResults[myResult]:
		return types.OutcomeDraw
	default:
		return types.OutcomeUnknown
	}
}

// termination names how the game ended. A win is explained by how the
// opponent lost; every other outcome falls back to the player's own result
// code.
func termination(outcome types.Outcome, myResult, oppResult string) string {
	if outcome == types.OutcomeWin {
		return oppResult
	}
	return myResult
}
