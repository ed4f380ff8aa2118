package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rubiojr/fuelroute/internal/geo"
	"github.com/rubiojr/fuelroute/internal/planner"
	"github.com/rubiojr/fuelroute/internal/trip"
	"github.com/urfave/cli/v2"
)

const defaultRadiusMiles = 10.0

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "nearby",
		Usage: "List stations near a location, cheapest first",
		Flags: append(stationFlags(),
			&cli.StringFlag{
				Name:  "location",
				Usage: "Location to search",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "Latitude of the location",
			},
			&cli.Float64Flag{
				Name:  "long",
				Usage: "Longitude of the location",
			},
			&cli.Float64Flag{
				Name:    "radius",
				Aliases: []string{"r"},
				Usage:   "Search radius in miles",
				Value:   defaultRadiusMiles,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of stations to list",
				Value: 20,
			},
		),
		Action: nearbyAction,
	}
}

func nearbyAction(c *cli.Context) error {
	ctx := context.Background()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	origin := geo.Point{Lat: c.Float64("lat"), Lng: c.Float64("long")}
	if loc := c.String("location"); loc != "" {
		origin, err = newGeocoder(cfg).Geocode(ctx, loc+trip.CountrySuffix)
		if err != nil {
			return err
		}
		fmt.Println("Location found:", origin)
	} else if origin.Lat == 0 && origin.Lng == 0 {
		return errors.New("location or latitude and longitude are required")
	}

	ds, err := trip.NewDatasets(newLoader(cfg, false, newLogger(c))).Dataset(ctx)
	if err != nil {
		return err
	}

	radius := c.Float64("radius")
	candidates := ds.Nearby(origin, radius)
	planner.SortCandidates(candidates)
	if limit := c.Int("limit"); limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	fmt.Printf("%d stations within %.1f miles:\n", len(candidates), radius)
	for i, cand := range candidates {
		fmt.Printf("%d. %s (%s)\n", i+1, cand.Station.Name, cand.Station.FullAddress())
		fmt.Printf("   Distance: %.2f miles\n", cand.DistanceMiles)
		fmt.Printf("   Price: $%.2f/gal\n", cand.Station.PricePerGallon())
	}
	return nil
}
