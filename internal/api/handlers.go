package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/chess-tracker/internal/models"
)

// handleSync triggers a sync pass. Passing full=true re-reads every
// archive; stored games are skipped by ingestion either way.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	full := r.URL.Query().Get("full") == "true"

	var (
		report interface{}
		err    error
	)
	if full {
		report, err = s.syncService.RunFull(r.Context())
	} else {
		report, err = s.syncService.RunOnce(r.Context())
	}
	if err != nil {
		s.logger.Error().Err(err).Bool("full", full).Msg("sync run failed")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleStatus returns the sync cursor and stored-game count.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.statsService.Status(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// GamesResponse is the paginated games payload.
type GamesResponse struct {
	Games  []*models.Game `json:"games"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// handleGetGames returns a page of stored games, newest first.
func (s *Server) handleGetGames(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)
	if limit < 1 || limit > 500 {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be between 1 and 500", nil)
		return
	}
	if offset < 0 {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "offset must not be negative", nil)
		return
	}

	games, err := s.statsService.RecentGames(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if games == nil {
		games = []*models.Game{}
	}

	respondJSON(w, http.StatusOK, GamesResponse{Games: games, Limit: limit, Offset: offset})
}

// GameResponse is a single game with its move analytics.
type GameResponse struct {
	Game       *models.Game           `json:"game"`
	Derivation *models.MoveDerivation `json:"derivation,omitempty"`
}

// handleGetGame returns one game by id.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	game, derivation, err := s.statsService.Game(r.Context(), gameID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if game == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "game not found", map[string]interface{}{"gameId": gameID})
		return
	}

	respondJSON(w, http.StatusOK, GameResponse{Game: game, Derivation: derivation})
}

// handleGetDailyStats returns daily summary rows, optionally windowed by
// from/to date parameters (YYYY-MM-DD).
func (s *Server) handleGetDailyStats(w http.ResponseWriter, r *http.Request) {
	from, ok := parseDateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to")
	if !ok {
		return
	}

	stats, err := s.statsService.DailyStats(r.Context(), from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if stats == nil {
		stats = []*models.DailyStat{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// handleGetRatingHistory returns the per-format rating timeline.
func (s *Server) handleGetRatingHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.statsService.RatingHistory(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ratings": history})
}

// handleDedupe removes redundant stored copies of the same game.
func (s *Server) handleDedupe(w http.ResponseWriter, r *http.Request) {
	removed, err := s.syncService.RemoveDuplicates(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// parseDateParam reads an optional YYYY-MM-DD query parameter. Writes a
// 400 response and returns ok=false on malformed input.
func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput,
			name+" must be a YYYY-MM-DD date", map[string]interface{}{name: raw})
		return time.Time{}, false
	}
	return t, true
}
