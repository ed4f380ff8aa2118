package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
	"github.com/rubiojr/fuelroute/internal/planner"
	"github.com/rubiojr/fuelroute/internal/trip"
)

const planMessage = "Route and optimal fuel stops calculated successfully."

type coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func newCoordinates(p geo.Point, places int) coordinates {
	return coordinates{
		Latitude:  geo.Round(p.Lat, places),
		Longitude: geo.Round(p.Lng, places),
	}
}

type stopLocation struct {
	Name                  string      `json:"name"`
	Address               string      `json:"address"`
	Coordinates           coordinates `json:"coordinates"`
	PricePerGallon        float64     `json:"price_per_gallon"`
	DistanceOffRouteMiles float64     `json:"distance_off_route_miles"`
}

type fuelStop struct {
	StopNumber             int          `json:"stop_number"`
	Location               stopLocation `json:"location"`
	DistanceIntoRouteMiles float64      `json:"distance_into_route_miles"`
}

type planResponse struct {
	StartLocation          string      `json:"start_location"`
	FinishLocation         string      `json:"finish_location"`
	StartCoordinates       coordinates `json:"start_coordinates"`
	FinishCoordinates      coordinates `json:"finish_coordinates"`
	TotalDistanceMiles     float64     `json:"total_distance_miles"`
	DurationSeconds        float64     `json:"duration_seconds"`
	VehicleMPG             float64     `json:"vehicle_mpg"`
	VehicleMaxRangeMiles   float64     `json:"vehicle_max_range_miles"`
	EstimatedTotalFuelCost float64     `json:"estimated_total_fuel_cost"`
	OptimalFuelStops       []fuelStop  `json:"optimal_fuel_stops"`
	Warnings               []string    `json:"warnings,omitempty"`
	EncodedRoutePolyline   string      `json:"encoded_route_polyline"`
	Message                string      `json:"message"`
}

func newPlanResponse(p *trip.Plan) planResponse {
	stops := make([]fuelStop, 0, len(p.Stops))
	for _, st := range p.Stops {
		stops = append(stops, fuelStop{
			StopNumber: st.Number,
			Location: stopLocation{
				Name:                  st.Station.Name,
				Address:               st.Station.FullAddress(),
				Coordinates:           newCoordinates(st.Station.Point(), 6),
				PricePerGallon:        st.PricePerGallon,
				DistanceOffRouteMiles: geo.Round(st.DistanceOffRoute, 2),
			},
			DistanceIntoRouteMiles: geo.Round(st.DistanceIntoRoute, 2),
		})
	}

	return planResponse{
		StartLocation:          p.Start,
		FinishLocation:         p.Finish,
		StartCoordinates:       newCoordinates(p.StartPoint, 6),
		FinishCoordinates:      newCoordinates(p.FinishPoint, 6),
		TotalDistanceMiles:     geo.Round(p.DistanceMiles, 2),
		DurationSeconds:        geo.Round(p.DurationSeconds, 2),
		VehicleMPG:             p.Vehicle.MilesPerGallon,
		VehicleMaxRangeMiles:   p.Vehicle.MaxRangeMiles,
		EstimatedTotalFuelCost: geo.Round(p.TotalCost, 2),
		OptimalFuelStops:       stops,
		Warnings:               p.Warnings,
		EncodedRoutePolyline:   p.Geometry,
		Message:                planMessage,
	}
}

type nearbyStation struct {
	ID             int         `json:"id"`
	Name           string      `json:"name"`
	Address        string      `json:"address"`
	Coordinates    coordinates `json:"coordinates"`
	PricePerGallon float64     `json:"price_per_gallon"`
	DistanceMiles  float64     `json:"distance_miles"`
}

type nearbyResponse struct {
	Origin      coordinates     `json:"origin"`
	RadiusMiles float64         `json:"radius_miles"`
	Count       int             `json:"count"`
	Stations    []nearbyStation `json:"stations"`
}

func newNearbyResponse(origin geo.Point, radius float64, candidates []planner.Candidate) nearbyResponse {
	out := make([]nearbyStation, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, nearbyStation{
			ID:             c.Station.ID,
			Name:           c.Station.Name,
			Address:        c.Station.FullAddress(),
			Coordinates:    newCoordinates(c.Station.Point(), 6),
			PricePerGallon: c.Station.PricePerGallon(),
			DistanceMiles:  geo.Round(c.DistanceMiles, 2),
		})
	}
	return nearbyResponse{
		Origin:      newCoordinates(origin, 6),
		RadiusMiles: radius,
		Count:       len(out),
		Stations:    out,
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeFailure maps an error kind to a status code. Unknown errors are
// logged and reported without detail.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound,
			"Could not find one or both route locations. Please be more specific or check spelling.")
	case errors.Is(err, errs.ErrDataUnavailable):
		s.writeError(w, r, http.StatusServiceUnavailable,
			"Fuel station data is not loaded. Check the station source file and cache.")
	case errors.Is(err, errs.ErrUpstreamMissingField):
		s.writeError(w, r, http.StatusBadGateway, "Unexpected response format from routing service: "+err.Error())
	case errors.Is(err, errs.ErrUpstream):
		s.writeError(w, r, http.StatusBadGateway, "Error communicating with upstream service: "+err.Error())
	case errors.Is(err, errs.ErrConfiguration):
		s.log.Error("configuration error", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "Server configuration error: "+err.Error())
	default:
		s.log.Error("unexpected error", "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
