// Package api provides the HTTP status surface for the times bot: a health
// check and a read-only view of the provisioning configuration.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/timesapp/times-bot/internal/platform"
	"github.com/timesapp/times-bot/internal/store"
)

// Version is reported by the status endpoint.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     store.Store
	client    platform.Client
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger
	startedAt time.Time
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, client platform.Client, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig("Times Bot API", Version)
	RegisterErrorHandler()

	s := &Server{
		store:     st,
		client:    client,
		router:    router,
		api:       humachi.New(router, humaConfig),
		logger:    logger,
		startedAt: time.Now(),
	}

	s.registerHealthRoutes()
	s.registerStatusRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
