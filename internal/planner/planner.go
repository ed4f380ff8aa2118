// Package planner simulates driving a route with a fixed range vehicle and
// picks the cheapest nearby station whenever the tank runs low.
//
// The search is reactive: a station is only looked for at the route point
// where the remaining range first crosses the refuel threshold (or cannot
// cover the next segment). Cheaper stations slightly before or after that
// point are not considered.
package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
	"github.com/rubiojr/fuelroute/internal/stations"
)

// Stop is a refuel at a chosen station.
type Stop struct {
	Number            int
	Station           stations.Station
	// PricePerGallon is the rounded price the refuel was charged at.
	PricePerGallon    float64
	DistanceIntoRoute float64
	DistanceOffRoute  float64
}

// Warning is recorded when a refuel was needed but no station was in reach.
// The simulation carries on as if the tank had been refilled nowhere.
type Warning struct {
	DistanceIntoRoute float64
	Point             geo.Point
}

func (w Warning) String() string {
	return fmt.Sprintf("no suitable fuel station found near %.2f miles into route", w.DistanceIntoRoute)
}

// Result is the outcome of planning one route.
type Result struct {
	Stops         []Stop
	TotalCost     float64
	DistanceMiles float64
	Warnings      []Warning
}

type state struct {
	remaining float64
	traveled  float64
	cost      float64
	stops     []Stop
	warnings  []Warning
}

// Plan runs the refuel simulation over route. It does no I/O.
func Plan(route []geo.Point, ds *Dataset, v Vehicle) (*Result, error) {
	return PlanContext(context.Background(), route, ds, v)
}

// PlanContext is Plan with a cancellation check between segments.
func PlanContext(ctx context.Context, route []geo.Point, ds *Dataset, v Vehicle) (*Result, error) {
	if !ds.available() {
		return nil, fmt.Errorf("%w: fuel station catalog is empty or not loaded", errs.ErrDataUnavailable)
	}
	if len(route) < 2 {
		return nil, fmt.Errorf("%w: route is too short to plan fuel stops (%d points)", errs.ErrValidation, len(route))
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	s := state{remaining: v.MaxRangeMiles}
	for i := 0; i < len(route)-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s = step(s, route[i], route[i+1], ds, v)
	}

	return &Result{
		Stops:         s.stops,
		TotalCost:     s.cost,
		DistanceMiles: s.traveled,
		Warnings:      s.warnings,
	}, nil
}

// step drives one segment, refueling at its start if needed.
func step(s state, from, to geo.Point, ds *Dataset, v Vehicle) state {
	length := geo.Distance(from, to)

	if s.remaining <= v.RefuelThresholdMiles || s.remaining < length {
		if c, ok := cheapest(ds.Nearby(from, v.MaxDeviationMiles)); ok {
			s.stops = append(s.stops, Stop{
				Number:            len(s.stops) + 1,
				Station:           c.Station,
				PricePerGallon:    c.Station.PricePerGallon(),
				DistanceIntoRoute: s.traveled,
				DistanceOffRoute:  c.DistanceMiles,
			})
			s.cost += c.Station.PricePerGallon() * v.TankGallons()
			s.remaining = v.MaxRangeMiles
		} else {
			s.warnings = append(s.warnings, Warning{DistanceIntoRoute: s.traveled, Point: from})
		}
	}

	s.remaining -= length
	s.traveled += length
	return s
}

// cheapest picks the lowest price in cents, then the closest station, then the lowest
// catalog id.
func cheapest(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}
	return best, true
}

func better(a, b Candidate) bool {
	switch {
	case a.Station.PricePerGallon() != b.Station.PricePerGallon():
		return a.Station.PricePerGallon() < b.Station.PricePerGallon()
	case a.DistanceMiles != b.DistanceMiles:
		return a.DistanceMiles < b.DistanceMiles
	}
	return a.Station.ID < b.Station.ID
}

// SortCandidates orders candidates the way a refuel stop is chosen: cheapest
// first, then closest.
func SortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		return better(candidates[i], candidates[j])
	})
}
