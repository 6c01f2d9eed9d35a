package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rotapost/rotapost/internal/clock"
	"github.com/rotapost/rotapost/internal/config"
	"github.com/rotapost/rotapost/internal/dispatch"
	"github.com/rotapost/rotapost/internal/history"
	"github.com/rotapost/rotapost/internal/plan"
	"github.com/rotapost/rotapost/internal/store"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	companies  *store.CompanyRepository
	posts      *store.PostRepository
	slots      *store.SlotRepository
	settings   *store.SettingsRepository
	planner    *plan.Service
	dispatcher *dispatch.Dispatcher
	histLog    *history.Log
	clock      *clock.Clock

	config    *config.ServerConfig
	logger    *slog.Logger
	version   string
	startTime time.Time
}

// Deps bundles everything the API serves.
type Deps struct {
	Companies  *store.CompanyRepository
	Posts      *store.PostRepository
	Slots      *store.SlotRepository
	Settings   *store.SettingsRepository
	Planner    *plan.Service
	Dispatcher *dispatch.Dispatcher
	History    *history.Log
	Clock      *clock.Clock
	Version    string
}

// NewServer creates a new API server
func NewServer(deps Deps, cfg *config.ServerConfig, logger *slog.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		companies:  deps.Companies,
		posts:      deps.Posts,
		slots:      deps.Slots,
		settings:   deps.Settings,
		planner:    deps.Planner,
		dispatcher: deps.Dispatcher,
		histLog:    deps.History,
		clock:      deps.Clock,
		config:     cfg,
		logger:     logger,
		version:    deps.Version,
		startTime:  time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleCompaniesList)
			r.Post("/", s.handleCompaniesCreate)
			r.Get("/{id}", s.handleCompaniesGet)
			r.Put("/{id}", s.handleCompaniesUpdate)
			r.Delete("/{id}", s.handleCompaniesDelete)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", s.handlePostsList)
			r.Post("/", s.handlePostsCreate)
			r.Get("/{id}", s.handlePostsGet)
			r.Put("/{id}", s.handlePostsUpdate)
			r.Delete("/{id}", s.handlePostsDelete)
		})

		r.Get("/settings", s.handleSettingsGet)
		r.Put("/settings", s.handleSettingsUpdate)

		r.Post("/plan", s.handlePlan)
		r.Post("/forecast", s.handleForecast)
		r.Get("/slots", s.handleSlotsList)

		r.Post("/dispatch/run", s.handleDispatchRun)

		r.Get("/history", s.handleHistoryList)
		r.Put("/history/{id}/views", s.handleHistoryViews)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
