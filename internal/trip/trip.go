// Package trip turns two free text locations into a fuel plan: it geocodes
// both ends, asks the router for the road geometry and runs the planner over
// the decoded route.
package trip

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
	"github.com/rubiojr/fuelroute/internal/geocode"
	"github.com/rubiojr/fuelroute/internal/planner"
	"github.com/rubiojr/fuelroute/pkg/ors"
)

// CountrySuffix is appended to user supplied locations before geocoding.
const CountrySuffix = ", USA"

// Router returns the driving route between two points.
type Router interface {
	Route(ctx context.Context, from, to geo.Point) (*ors.Directions, error)
}

// DatasetProvider returns the shared station snapshot, building it on first
// use.
type DatasetProvider interface {
	Dataset(ctx context.Context) (*planner.Dataset, error)
}

// Plan is a planned trip.
type Plan struct {
	Start           string
	Finish          string
	StartPoint      geo.Point
	FinishPoint     geo.Point
	DistanceMiles   float64
	DurationSeconds float64
	Vehicle         planner.Vehicle
	Stops           []planner.Stop
	TotalCost       float64
	Warnings        []string
	// Geometry is the encoded route polyline.
	Geometry string
}

type Service struct {
	geocoder geocode.Geocoder
	router   Router
	datasets DatasetProvider
	vehicle  planner.Vehicle
	log      *slog.Logger
}

// NewService wires a trip planner. router may be nil for offline use, in
// which case only PlanRoute works.
func NewService(geocoder geocode.Geocoder, router Router, datasets DatasetProvider, vehicle planner.Vehicle, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		geocoder: geocoder,
		router:   router,
		datasets: datasets,
		vehicle:  vehicle,
		log:      logger,
	}
}

func (s *Service) Vehicle() planner.Vehicle { return s.vehicle }

// Plan plans the trip from start to finish.
func (s *Service) Plan(ctx context.Context, start, finish string) (*Plan, error) {
	start, finish = strings.TrimSpace(start), strings.TrimSpace(finish)
	if start == "" || finish == "" {
		return nil, fmt.Errorf("%w: start and finish locations are required", errs.ErrValidation)
	}
	if s.router == nil || s.geocoder == nil {
		return nil, fmt.Errorf("%w: routing is not configured", errs.ErrConfiguration)
	}

	ds, err := s.datasets.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("%w: no stations loaded", errs.ErrDataUnavailable)
	}

	from, err := s.geocoder.Geocode(ctx, start+CountrySuffix)
	if err != nil {
		return nil, fmt.Errorf("error geocoding start location: %w", err)
	}
	to, err := s.geocoder.Geocode(ctx, finish+CountrySuffix)
	if err != nil {
		return nil, fmt.Errorf("error geocoding finish location: %w", err)
	}
	s.log.Debug("geocoded trip ends", "start", from, "finish", to)

	directions, err := s.router.Route(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("error fetching route: %w", err)
	}

	route, err := geo.DecodePolyline(directions.Geometry)
	if err != nil {
		return nil, fmt.Errorf("%w: error decoding route geometry: %v", errs.ErrUpstream, err)
	}

	plan, err := s.plan(ctx, route, ds)
	if err != nil {
		return nil, err
	}
	plan.Start, plan.Finish = start, finish
	plan.StartPoint, plan.FinishPoint = from, to
	plan.DistanceMiles = directions.DistanceMiles
	plan.DurationSeconds = directions.DurationSeconds
	plan.Geometry = directions.Geometry

	return plan, nil
}

// PlanRoute plans over an already known route, such as a GPX track. The
// distance is the route's geodesic length and the duration is unknown.
func (s *Service) PlanRoute(ctx context.Context, route []geo.Point) (*Plan, error) {
	ds, err := s.datasets.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, route, ds)
	if err != nil {
		return nil, err
	}
	plan.StartPoint = route[0]
	plan.FinishPoint = route[len(route)-1]
	plan.Start, plan.Finish = plan.StartPoint.String(), plan.FinishPoint.String()
	plan.Geometry = geo.EncodePolyline(route)

	return plan, nil
}

func (s *Service) plan(ctx context.Context, route []geo.Point, ds *planner.Dataset) (*Plan, error) {
	res, err := planner.PlanContext(ctx, route, ds, s.vehicle)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		DistanceMiles: res.DistanceMiles,
		Vehicle:       s.vehicle,
		Stops:         res.Stops,
		TotalCost:     res.TotalCost,
	}
	for _, w := range res.Warnings {
		s.log.Warn(w.String(), "point", w.Point)
		plan.Warnings = append(plan.Warnings, w.String())
	}
	s.log.Debug("trip planned", "points", len(route), "stops", len(res.Stops), "cost", res.TotalCost)

	return plan, nil
}
