package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rubiojr/fuelroute/internal/stations"
	"github.com/urfave/cli/v2"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show what the station cache holds",
		Flags:  stationFlags(),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	ctx := context.Background()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.Stations.Cache); err != nil {
		fmt.Printf("No station cache at %s. Run 'fuelroute load' first.\n", cfg.Stations.Cache)
		return nil
	}

	store, err := stations.OpenStore(ctx, cfg.Stations.Cache, newLogger(c))
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Cache:          %s\n", cfg.Stations.Cache)
	fmt.Printf("Schema version: %s (current %s)\n", stats.SchemaVersion, stations.SchemaVersion)
	if !stats.BuiltAt.IsZero() {
		fmt.Printf("Built at:       %s\n", stats.BuiltAt.Format(time.RFC3339))
	}
	fmt.Printf("Stations:       %d\n", stats.Stations)
	if stats.Stations > 0 {
		fmt.Printf("Price range:    $%.3f - $%.3f\n", stats.MinPrice, stats.MaxPrice)
	}
	return nil
}
