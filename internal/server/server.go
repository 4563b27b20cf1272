// Package server exposes the derived views and CSV downloads over HTTP and
// refreshes the pipeline on a schedule.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sparkflow-dev/sparkflow/internal/export"
	"github.com/sparkflow-dev/sparkflow/internal/pipeline"
)

// Config holds server configuration.
type Config struct {
	Log             zerolog.Logger
	Pipeline        *pipeline.Pipeline
	Quoting         export.Quoting
	Addr            string
	RefreshSchedule string // cron spec; empty disables scheduled refresh
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	pipeline *pipeline.Pipeline
	quoting  export.Quoting
	cron     *cron.Cron
}

// New creates a Server and registers the refresh schedule.
func New(cfg Config) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("server: pipeline is required")
	}

	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		pipeline: cfg.Pipeline,
		quoting:  cfg.Quoting,
		cron:     cron.New(),
	}

	if cfg.RefreshSchedule != "" {
		_, err := s.cron.AddFunc(cfg.RefreshSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			s.pipeline.Refresh(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("parsing refresh schedule %q: %w", cfg.RefreshSchedule, err)
		}
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run refreshes once, starts the scheduler and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.pipeline.Refresh(ctx)

	s.cron.Start()
	defer func() {
		<-s.cron.Stop().Done()
		s.log.Info().Msg("Scheduler stopped")
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("Listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/forecast", s.handleForecast)
		r.Get("/transfers", s.handleTransfers)
		r.Get("/savings", s.handleSavings)
		r.Post("/refresh", s.handleRefresh)
	})

	s.router.Route("/export", func(r chi.Router) {
		r.Get("/forecast.csv", s.handleExportForecast)
		r.Get("/transfers.csv", s.handleExportTransfers)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
