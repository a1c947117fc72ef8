package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/mealplanner/backend/config"
	"github.com/pageza/mealplanner/backend/internal/logger"
	"github.com/pageza/mealplanner/backend/internal/router"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *logger.Logger
}

// New creates a new server instance
func New(cfg *config.Config, deps router.Dependencies) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.CORSOrigins == nil {
		deps.CORSOrigins = cfg.CORSOrigins
	}
	if deps.RateLimitPerMinute == 0 {
		deps.RateLimitPerMinute = cfg.RateLimitPerMinute
	}

	r := router.SetupRouter(deps)
	return &Server{
		router: r,
		http: &http.Server{
			Addr:              cfg.ListenAddr(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			// Leaves room for a solve with its retry.
			WriteTimeout: 2*cfg.SolverTimeout + 10*time.Second,
		},
		logger: deps.Logger.WithComponent("server"),
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.http.Shutdown(ctx)
}
