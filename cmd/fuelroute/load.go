package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func loadCommand() *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Geocode the station price list and build the station cache",
		Flags: append(stationFlags(),
			&cli.BoolFlag{
				Name:  "rebuild",
				Usage: "Ignore an existing cache and geocode the price list again",
			},
			&cli.DurationFlag{
				Name:  "pause",
				Usage: "Minimum pause between geocoding requests",
			},
		),
		Action: loadAction,
	}
}

func loadAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("pause") {
		cfg.Geocoding.Interval = c.Duration("pause")
	}

	start := time.Now()
	catalog, err := newLoader(cfg, c.Bool("rebuild"), newLogger(c)).Load(context.Background())
	if err != nil {
		return fmt.Errorf("error loading stations: %w", err)
	}

	fmt.Printf("Loaded %d stations from %s in %s\n", catalog.Len(), catalog.Source(), time.Since(start).Round(time.Millisecond))
	fmt.Printf("Cache: %s (built %s)\n", cfg.Stations.Cache, catalog.BuiltAt().Format(time.RFC3339))
	return nil
}
