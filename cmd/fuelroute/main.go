package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rubiojr/fuelroute/internal/config"
	"github.com/rubiojr/fuelroute/internal/geocode"
	"github.com/rubiojr/fuelroute/internal/stations"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "fuelroute",
		Usage: "Plan the cheapest fuel stops along a US driving route",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file (defaults to ./config.yml when present)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			loadCommand(),
			statusCommand(),
			planCommand(),
			nearbyCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	if !c.Bool("debug") {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// loadConfig reads the config file and applies the station flags shared by
// several commands.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("source") {
		cfg.Stations.Source = c.String("source")
	}
	if c.IsSet("cache") {
		cfg.Stations.Cache = c.String("cache")
	}
	return cfg, nil
}

func stationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "source",
			Usage: "Station price list (CSV)",
		},
		&cli.StringFlag{
			Name:  "cache",
			Usage: "Station cache database file",
		},
	}
}

func newGeocoder(cfg *config.Config) *geocode.Nominatim {
	return geocode.NewNominatim(cfg.Geocoding.Server, cfg.Geocoding.Interval)
}

func newLoader(cfg *config.Config, refresh bool, logger *slog.Logger) *stations.Loader {
	memo := geocode.NewMemo(newGeocoder(cfg), cfg.Geocoding.MemoTTL)
	return stations.NewLoader(stations.Options{
		SourcePath: cfg.Stations.Source,
		CachePath:  cfg.Stations.Cache,
		Refresh:    refresh,
	}, memo, logger)
}
