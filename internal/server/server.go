// Package server exposes trip planning over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"github.com/rubiojr/fuelroute/internal/trip"
)

const (
	DefaultRateLimit      = 20
	DefaultNearbyCacheTTL = 5 * time.Minute
	shutdownTimeout       = 10 * time.Second
)

// Planner plans a trip between two free text locations.
type Planner interface {
	Plan(ctx context.Context, start, finish string) (*trip.Plan, error)
}

type Options struct {
	// RateLimit is the number of requests per minute allowed per client IP.
	RateLimit      int
	NearbyCacheTTL time.Duration
	Logger         *httplog.Logger
}

type Server struct {
	trips    Planner
	datasets trip.DatasetProvider
	nearby   *cache.Cache
	validate *validator.Validate
	log      *slog.Logger
	handler  http.Handler
}

func New(trips Planner, datasets trip.DatasetProvider, opts Options) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.NearbyCacheTTL <= 0 {
		opts.NearbyCacheTTL = DefaultNearbyCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = httplog.NewLogger("fuelroute", httplog.Options{
			LogLevel: slog.LevelInfo,
			Concise:  true,
		})
	}

	s := &Server{
		trips:    trips,
		datasets: datasets,
		nearby:   cache.New(opts.NearbyCacheTTL, 3*opts.NearbyCacheTTL),
		validate: validator.New(),
		log:      opts.Logger.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/calculate-distance/", s.calculateDistance)
		r.Get("/stations/nearby", s.nearbyStations)
	})
	s.handler = r

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("starting server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
