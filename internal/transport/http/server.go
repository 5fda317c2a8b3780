package http

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"livepoll/internal/app"
	"livepoll/internal/config"
	"livepoll/internal/transport/ws"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	hub    *app.Hub
	config *config.Config
	logger *slog.Logger
	db     *sql.DB // nil when the in-memory store is in use
}

// NewServer creates a new HTTP server. db may be nil; it is only used for
// the readiness probe when the postgres store is configured.
func NewServer(cfg *config.Config, hub *app.Hub, logger *slog.Logger, db *sql.DB) *Server {
	s := &Server{
		hub:    hub,
		config: cfg,
		logger: logger,
		db:     db,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(CORSMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/stats", s.handleStats)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(60 * time.Second))
		r.With(RateLimitCreates(rate.Every(time.Second), 5)).Post("/polls", s.handleCreatePoll)
		r.Get("/polls/{id}", s.handleGetPoll)
	})

	// WebSocket endpoint stays outside the timeout group; the connection
	// is hijacked and long-lived.
	wsHandler := ws.NewHandler(hub, logger)
	r.Get("/ws", wsHandler.ServeHTTP)

	s.server = &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}
