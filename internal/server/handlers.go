package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
	"github.com/rubiojr/fuelroute/internal/planner"
)

const (
	DefaultNearbyRadius = 10.0 // miles
	MaxNearbyRadius     = 100.0
	defaultNearbyLimit  = 50
	maxRequestBytes     = 1 << 16
	originPlaces        = 5
)

type calculateRequest struct {
	StartLocation  string `json:"start_location" validate:"required,max=255"`
	FinishLocation string `json:"finish_location" validate:"required,max=255"`
}

func (s *Server) calculateDistance(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[jsonFieldName(fe.Field())] = fe.Tag()
			}
			s.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "Invalid request", Fields: fields})
			return
		}
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := s.trips.Plan(r.Context(), req.StartLocation, req.FinishLocation)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, newPlanResponse(plan))
}

func jsonFieldName(field string) string {
	switch field {
	case "StartLocation":
		return "start_location"
	case "FinishLocation":
		return "finish_location"
	}
	return field
}

func (s *Server) nearbyStations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "Invalid latitude value")
		return
	}
	lng, err := strconv.ParseFloat(query.Get("lng"), 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "Invalid longitude value")
		return
	}
	// searches and cache entries share the same rounded origin
	origin := geo.Point{Lat: geo.Round(lat, originPlaces), Lng: geo.Round(lng, originPlaces)}
	if !origin.Valid() {
		s.writeError(w, r, http.StatusBadRequest, "Coordinates out of range")
		return
	}

	radius := DefaultNearbyRadius
	if v := query.Get("radius"); v != "" {
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 || radius > MaxNearbyRadius {
			s.writeError(w, r, http.StatusBadRequest,
				fmt.Sprintf("Invalid radius, must be between 0 and %g miles", MaxNearbyRadius))
			return
		}
	}

	limit := defaultNearbyLimit
	if v := query.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "Invalid limit value")
			return
		}
	}

	radius = geo.Round(radius, 2)
	key := fmt.Sprintf("%v,%v,%v,%d", origin.Lat, origin.Lng, radius, limit)
	if cached, found := s.nearby.Get(key); found {
		s.writeJSON(w, r, http.StatusOK, cached)
		return
	}

	ds, err := s.datasets.Dataset(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if ds.Len() == 0 {
		s.writeFailure(w, r, errs.ErrDataUnavailable)
		return
	}

	candidates := ds.Nearby(origin, radius)
	planner.SortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	resp := newNearbyResponse(origin, radius, candidates)
	s.nearby.Set(key, resp, cache.DefaultExpiration)
	s.writeJSON(w, r, http.StatusOK, resp)
}

type healthResponse struct {
	Status   string `json:"status"`
	Stations int    `json:"stations"`
	Error    string `json:"error,omitempty"`
}

// readiness is implemented by providers that can report a finished catalog
// build without waiting for one.
type readiness interface {
	Ready() (*planner.Dataset, bool)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	var (
		ds  *planner.Dataset
		err error
	)
	if rd, ok := s.datasets.(readiness); ok {
		var ready bool
		if ds, ready = rd.Ready(); !ready {
			s.writeJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "loading"})
			return
		}
	} else {
		ds, err = s.datasets.Dataset(r.Context())
	}

	if err != nil || ds.Len() == 0 {
		msg := "no stations loaded"
		if err != nil {
			msg = err.Error()
		}
		s.writeJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: msg})
		return
	}
	s.writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok", Stations: ds.Len()})
}
