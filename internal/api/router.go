// Package api provides a local, read-only HTTP introspection surface
// for one running agent loop, adapted from the teacher's
// internal/api/router.go: a terminal UI shell or other local tooling
// can poll session state (status, stats, message and undo counts) without going
// through the wire protocol the model itself speaks.
package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cascadehq/cascade/internal/config"
	"github.com/cascadehq/cascade/internal/session"
)

// StatusFunc reports the agent loop's current Status as a string
// (e.g. "ready", "thinking"); it lets Server stay decoupled from
// internal/agentloop so the two packages don't import each other.
type StatusFunc func() string

// Server is the introspection HTTP server. It never mutates state:
// every route reads from the session store or the supplied
// StatusFunc.
type Server struct {
	cfg      *config.APIConfig
	sessions *session.Store
	status   StatusFunc
	router   chi.Router
}

// NewServer builds a Server backed by sessions, reporting loop status
// via statusFn.
func NewServer(cfg *config.APIConfig, sessions *session.Store, statusFn StatusFunc) *Server {
	s := &Server{cfg: cfg, sessions: sessions, status: statusFn}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"Accept"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/session/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Get("/stats", s.handleGetSessionStats)
	})

	s.router = r
}

// Handler returns the configured http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the host:port the server should bind, per cfg.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}
