package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/rubiojr/fuelroute/internal/server"
	"github.com/rubiojr/fuelroute/internal/trip"
	"github.com/rubiojr/fuelroute/pkg/ors"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the planning API over HTTP",
		Flags: append(stationFlags(),
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP server port",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to listen on",
				Value: "127.0.0.1",
			},
		),
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := cfg.RequireRouting(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := httplog.NewLogger("fuelroute", httplog.Options{
		JSON:            false,
		LogLevel:        level,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	router, err := ors.NewClient(cfg.Routing.BaseURL, cfg.Routing.APIKey, &http.Client{Timeout: cfg.Routing.Timeout})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	datasets := trip.NewDatasets(newLoader(cfg, false, logger.Logger))
	go func() {
		ds, err := datasets.Dataset(ctx)
		if err != nil {
			logger.Error("Error loading stations", "error", err)
			return
		}
		logger.Info("Stations loaded", "count", ds.Len(), "source", ds.Catalog().Source())
	}()

	svc := trip.NewService(newGeocoder(cfg), router, datasets, cfg.PlannerVehicle(), logger.Logger)
	srv := server.New(svc, datasets, server.Options{
		RateLimit:      cfg.Server.RateLimit,
		NearbyCacheTTL: cfg.Server.NearbyCacheTTL,
		Logger:         logger,
	})

	addr := fmt.Sprintf("%s:%d", c.String("host"), cfg.Server.Port)
	return srv.ListenAndServe(ctx, addr)
}
