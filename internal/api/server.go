// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/chess-tracker/internal/models"
	"github.com/chess-tracker/internal/service"
	"github.com/chess-tracker/internal/storage"
	"github.com/chess-tracker/internal/types"
)

// Service interfaces for dependency injection and testing

// SyncServiceInterface defines the sync operations the API exposes.
type SyncServiceInterface interface {
	RunOnce(ctx context.Context) (*service.RunReport, error)
	RunFull(ctx context.Context) (*service.RunReport, error)
	RemoveDuplicates(ctx context.Context) (int64, error)
}

// StatsServiceInterface defines the read operations the API exposes.
type StatsServiceInterface interface {
	RecentGames(ctx context.Context, limit, offset int) ([]*models.Game, error)
	Game(ctx context.Context, gameID string) (*models.Game, *models.MoveDerivation, error)
	DailyStats(ctx context.Context, from, to time.Time) ([]*models.DailyStat, error)
	RatingHistory(ctx context.Context) (map[types.Format][]storage.RatingPoint, error)
	Status(ctx context.Context) (*service.Status, error)
}

// Server represents the HTTP API server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	syncService  SyncServiceInterface
	statsService StatsServiceInterface
	config       *ServerConfig
	logger       zerolog.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, syncService SyncServiceInterface, statsService StatsServiceInterface, logger zerolog.Logger) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		syncService:  syncService,
		statsService: statsService,
		config:       config,
		logger:       logger.With().Str("component", "api").Logger(),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/sync", s.handleSync).Methods("POST")
	api.HandleFunc("/sync/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/games", s.handleGetGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/stats/daily", s.handleGetDailyStats).Methods("GET")
	api.HandleFunc("/stats/ratings", s.handleGetRatingHistory).Methods("GET")
	api.HandleFunc("/maintenance/dedupe", s.handleDedupe).Methods("POST")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "chess-tracker",
	})
}

// Router exposes the configured router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
