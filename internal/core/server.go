// Package core provides the HTTP chassis for the astro weather read API:
// a chi router with the cross-cutting middleware (panic recovery, request
// IDs, request logging) and the standard response envelope.
package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"astroweather/internal/config"
)

// Server holds the router and the dependencies shared by all handlers.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	router *chi.Mux
}

// NewServer creates a Server with the base middleware chain mounted. The
// caller mounts routes on Router() after construction.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}

	s.router.Use(s.Recoverer)
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(logger))

	return s, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}
