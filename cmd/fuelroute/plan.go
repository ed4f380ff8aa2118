package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rubiojr/fuelroute/internal/config"
	"github.com/rubiojr/fuelroute/internal/geo"
	"github.com/rubiojr/fuelroute/internal/trip"
	"github.com/rubiojr/fuelroute/pkg/ors"
	"github.com/urfave/cli/v2"
)

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Plan fuel stops between two locations or along a GPX track",
		Flags: append(stationFlags(),
			&cli.StringFlag{
				Name:  "from",
				Usage: "Start location, e.g. \"Los Angeles, CA\"",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Finish location",
			},
			&cli.StringFlag{
				Name:  "gpx",
				Usage: "Plan along the first track of a GPX file instead of asking the routing API",
			},
			&cli.Float64Flag{
				Name:  "max-range",
				Usage: "Vehicle range on a full tank, in miles",
			},
			&cli.Float64Flag{
				Name:  "mpg",
				Usage: "Vehicle fuel economy, in miles per gallon",
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Look for fuel once the remaining range drops to this many miles",
			},
			&cli.Float64Flag{
				Name:  "max-deviation",
				Usage: "Farthest a station may be from the route, in miles",
			},
		),
		Action: planAction,
	}
}

func planAction(c *cli.Context) error {
	ctx := context.Background()
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyVehicleFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	gpxPath := c.String("gpx")
	from, to := c.String("from"), c.String("to")
	if gpxPath == "" && (from == "" || to == "") {
		return errors.New("--from and --to, or --gpx, are required")
	}

	logger := newLogger(c)
	datasets := trip.NewDatasets(newLoader(cfg, false, logger))

	var plan *trip.Plan
	if gpxPath != "" {
		route, err := geo.LoadGPX(gpxPath)
		if err != nil {
			return err
		}
		svc := trip.NewService(nil, nil, datasets, cfg.PlannerVehicle(), logger)
		plan, err = svc.PlanRoute(ctx, route)
		if err != nil {
			return err
		}
	} else {
		if err := cfg.RequireRouting(); err != nil {
			return err
		}
		router, err := ors.NewClient(cfg.Routing.BaseURL, cfg.Routing.APIKey, &http.Client{Timeout: cfg.Routing.Timeout})
		if err != nil {
			return err
		}
		svc := trip.NewService(newGeocoder(cfg), router, datasets, cfg.PlannerVehicle(), logger)
		plan, err = svc.Plan(ctx, from, to)
		if err != nil {
			return err
		}
	}

	printPlan(plan)
	return nil
}

func applyVehicleFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("max-range") {
		cfg.Vehicle.MaxRangeMiles = c.Float64("max-range")
	}
	if c.IsSet("mpg") {
		cfg.Vehicle.MilesPerGallon = c.Float64("mpg")
	}
	if c.IsSet("threshold") {
		cfg.Vehicle.RefuelThresholdMiles = c.Float64("threshold")
	}
	if c.IsSet("max-deviation") {
		cfg.Vehicle.MaxDeviationMiles = c.Float64("max-deviation")
	}
}

func printPlan(p *trip.Plan) {
	fmt.Printf("From: %s (%s)\n", p.Start, p.StartPoint)
	fmt.Printf("To:   %s (%s)\n", p.Finish, p.FinishPoint)
	fmt.Printf("Distance: %.2f miles", p.DistanceMiles)
	if p.DurationSeconds > 0 {
		fmt.Printf(", about %.1f hours", p.DurationSeconds/3600)
	}
	fmt.Println()
	fmt.Printf("Vehicle: %.0f miles range, %.1f mpg\n\n", p.Vehicle.MaxRangeMiles, p.Vehicle.MilesPerGallon)

	if len(p.Stops) == 0 {
		fmt.Println("No fuel stops needed.")
	}
	for _, st := range p.Stops {
		fmt.Printf("%d. %s (%s)\n", st.Number, st.Station.Name, st.Station.FullAddress())
		fmt.Printf("   Price: $%.2f/gal\n", st.PricePerGallon)
		fmt.Printf("   At mile %.2f, %.2f miles off route\n", st.DistanceIntoRoute, st.DistanceOffRoute)
	}
	for _, w := range p.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	fmt.Printf("\nEstimated fuel cost: $%.2f\n", p.TotalCost)
}
