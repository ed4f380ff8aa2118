package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
	"github.com/rubiojr/fuelroute/internal/planner"
	"github.com/rubiojr/fuelroute/internal/stations"
	"github.com/rubiojr/fuelroute/internal/trip"
	"github.com/rubiojr/fuelroute/pkg/ors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct {
	plan  *trip.Plan
	err   error
	calls int
}

func (f *fakePlanner) Plan(ctx context.Context, start, finish string) (*trip.Plan, error) {
	f.calls++
	return f.plan, f.err
}

func testDataset() *planner.Dataset {
	return planner.NewDataset(stations.NewCatalog([]stations.Station{
		{Name: "CHEAP FAR", Address: "I-40, EXIT 1", City: "Needles", State: "CA", Lat: 35.05, Lng: -114.6, Price: 3.109},
		{Name: "PRICEY NEAR", Address: "I-40, EXIT 2", City: "Needles", State: "CA", Lat: 35.0, Lng: -114.61, Price: 3.899},
		{Name: "OUT OF RANGE", Address: "Main St", City: "Barstow", State: "CA", Lat: 34.9, Lng: -117.0, Price: 2.5},
	}, stations.SourceCache, time.Now()))
}

func newTestServer(p Planner, datasets trip.DatasetProvider) *Server {
	return New(p, datasets, Options{RateLimit: 1000})
}

func postCalculate(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/calculate-distance/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type fakeGeocoder map[string]geo.Point

func (f fakeGeocoder) Geocode(ctx context.Context, query string) (geo.Point, error) {
	p, ok := f[query]
	if !ok {
		return geo.Point{}, errs.ErrNotFound
	}
	return p, nil
}

type fakeRouter struct {
	directions *ors.Directions
}

func (f fakeRouter) Route(ctx context.Context, from, to geo.Point) (*ors.Directions, error) {
	return f.directions, nil
}

func TestCalculateDistance(t *testing.T) {
	var route []geo.Point
	for lng := -120.0; lng <= -114.0+1e-9; lng += 0.25 {
		route = append(route, geo.Point{Lat: 35, Lng: lng})
	}
	geometry := geo.EncodePolyline(route)

	geocoder := fakeGeocoder{
		"Bakersfield, CA, USA": {Lat: 35.3732921, Lng: -119.0187126},
		"Needles, CA, USA":     {Lat: 34.8480728, Lng: -114.6141347},
	}
	router := fakeRouter{directions: &ors.Directions{DistanceMiles: 341.6789, DurationSeconds: 18234.567, Geometry: geometry}}
	ds := testDataset()
	svc := trip.NewService(geocoder, router, trip.Static(ds), planner.DefaultVehicle(), nil)
	srv := newTestServer(svc, trip.Static(ds))

	rec := postCalculate(t, srv, `{"start_location": "Bakersfield, CA", "finish_location": "Needles, CA"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "Bakersfield, CA", resp["start_location"])
	assert.Equal(t, "Needles, CA", resp["finish_location"])
	assert.Equal(t, map[string]any{"latitude": 35.373292, "longitude": -119.018713}, resp["start_coordinates"])
	assert.Equal(t, 341.68, resp["total_distance_miles"])
	assert.Equal(t, 18234.57, resp["duration_seconds"])
	assert.Equal(t, 10.0, resp["vehicle_mpg"])
	assert.Equal(t, 500.0, resp["vehicle_max_range_miles"])
	assert.InDelta(t, 3.11*50, resp["estimated_total_fuel_cost"], 1e-9)
	assert.NotContains(t, resp, "warnings")

	stops, ok := resp["optimal_fuel_stops"].([]any)
	require.True(t, ok)
	require.Len(t, stops, 1)
	stop := stops[0].(map[string]any)
	assert.Equal(t, 1.0, stop["stop_number"])
	assert.Greater(t, stop["distance_into_route_miles"], 300.0)
	location := stop["location"].(map[string]any)
	assert.Equal(t, "CHEAP FAR", location["name"])
	assert.Equal(t, "I-40, EXIT 1, Needles, CA", location["address"])
	assert.Equal(t, 3.11, location["price_per_gallon"])
	assert.Equal(t, geometry, resp["encoded_route_polyline"])
	assert.Equal(t, planMessage, resp["message"])
}

func TestPlanResponseShape(t *testing.T) {
	plan := &trip.Plan{
		Start:       "A",
		Finish:      "B",
		StartPoint:  geo.Point{Lat: 1.23456789, Lng: 2},
		FinishPoint: geo.Point{Lat: 3, Lng: 4},
		Vehicle:     planner.DefaultVehicle(),
		Stops: []planner.Stop{{
			Number: 1,
			Station: stations.Station{
				Name: "STOP", Address: "1 Road", City: "Town", State: "TX",
				Lat: 31.1234567, Lng: -97.7654321, Price: 3.2567,
			},
			PricePerGallon:    3.26,
			DistanceIntoRoute: 310.456,
			DistanceOffRoute:  2.3451,
		}},
		TotalCost: 162.8351,
		Warnings:  []string{"no suitable fuel station found near 820.00 miles into route"},
		Geometry:  "abc",
	}

	resp := newPlanResponse(plan)
	assert.Equal(t, 1.234568, resp.StartCoordinates.Latitude)
	assert.Equal(t, 162.84, resp.EstimatedTotalFuelCost)
	require.Len(t, resp.OptimalFuelStops, 1)

	stop := resp.OptimalFuelStops[0]
	assert.Equal(t, 1, stop.StopNumber)
	assert.Equal(t, 310.46, stop.DistanceIntoRouteMiles)
	assert.Equal(t, "1 Road, Town, TX", stop.Location.Address)
	assert.Equal(t, 3.26, stop.Location.PricePerGallon)
	assert.Equal(t, 2.35, stop.Location.DistanceOffRouteMiles)
	assert.Equal(t, coordinates{Latitude: 31.123457, Longitude: -97.765432}, stop.Location.Coordinates)
	assert.Equal(t, plan.Warnings, resp.Warnings)
}

func TestCalculateDistanceBadRequest(t *testing.T) {
	p := &fakePlanner{}
	srv := newTestServer(p, trip.Static(testDataset()))

	rec := postCalculate(t, srv, `{"start_location": "Austin, TX"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postCalculate(t, srv, `{"start_location": "Austin, TX"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, map[string]string{"finish_location": "required"}, resp.Fields)

	long := strings.Repeat("x", 256)
	rec = postCalculate(t, srv, fmt.Sprintf(`{"start_location": "%s", "finish_location": "Dallas, TX"}`, long))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp = decode[errorResponse](t, rec)
	assert.Equal(t, map[string]string{"start_location": "max"}, resp.Fields)

	assert.Equal(t, 0, p.calls)
}

func TestCalculateDistanceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrap: %w", errs.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", errs.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", errs.ErrDataUnavailable), http.StatusServiceUnavailable},
		{&ors.StatusError{Code: 403, Body: "forbidden"}, http.StatusBadGateway},
		{fmt.Errorf("wrap: %w", errs.ErrUpstreamMissingField), http.StatusBadGateway},
		{fmt.Errorf("wrap: %w", errs.ErrConfiguration), http.StatusInternalServerError},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv := newTestServer(&fakePlanner{err: tt.err}, trip.Static(testDataset()))
			rec := postCalculate(t, srv, `{"start_location": "A", "finish_location": "B"}`)
			assert.Equal(t, tt.code, rec.Code)

			resp := decode[errorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
		})
	}

	srv := newTestServer(&fakePlanner{err: fmt.Errorf("secret internals")}, trip.Static(testDataset()))
	rec := postCalculate(t, srv, `{"start_location": "A", "finish_location": "B"}`)
	assert.NotContains(t, rec.Body.String(), "secret internals")
}

func TestNearbyStations(t *testing.T) {
	calls := 0
	ds := testDataset()
	srv := newTestServer(&fakePlanner{}, trip.DatasetFunc(func(context.Context) (*planner.Dataset, error) {
		calls++
		return ds, nil
	}))

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec
	}

	rec := get("/api/stations/nearby?lat=35.0&lng=-114.6")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[nearbyResponse](t, rec)
	assert.Equal(t, DefaultNearbyRadius, resp.RadiusMiles)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "CHEAP FAR", resp.Stations[0].Name)
	assert.Equal(t, "PRICEY NEAR", resp.Stations[1].Name)
	assert.Less(t, resp.Stations[1].DistanceMiles, resp.Stations[0].DistanceMiles)

	rec = get("/api/stations/nearby?lat=35.0&lng=-114.6")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)

	rec = get("/api/stations/nearby?lat=35.0&lng=-114.6&radius=1")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[nearbyResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "PRICEY NEAR", resp.Stations[0].Name)

	rec = get("/api/stations/nearby?lat=35.0&lng=-114.6&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[nearbyResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "CHEAP FAR", resp.Stations[0].Name)

	for _, url := range []string{
		"/api/stations/nearby?lat=abc&lng=-114.6",
		"/api/stations/nearby?lat=35",
		"/api/stations/nearby?lat=95&lng=-114.6",
		"/api/stations/nearby?lat=35&lng=-114.6&radius=-1",
		"/api/stations/nearby?lat=35&lng=-114.6&radius=500",
		"/api/stations/nearby?lat=35&lng=-114.6&limit=0",
	} {
		assert.Equal(t, http.StatusBadRequest, get(url).Code, url)
	}
}

func TestNearbyStationsUnavailable(t *testing.T) {
	srv := newTestServer(&fakePlanner{}, trip.Static(planner.NewDataset(nil)))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stations/nearby?lat=35&lng=-114.6", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakePlanner{}, trip.Static(testDataset()))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthResponse{Status: "ok", Stations: 3}, decode[healthResponse](t, rec))

	srv = newTestServer(&fakePlanner{}, trip.DatasetFunc(func(context.Context) (*planner.Dataset, error) {
		return nil, errs.ErrDataUnavailable
	}))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type pendingLoader struct {
	catalog *stations.Catalog
}

func (p *pendingLoader) Load(ctx context.Context) (*stations.Catalog, error) {
	if p.catalog == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.catalog, nil
}

func (p *pendingLoader) Loaded() (*stations.Catalog, bool) {
	return p.catalog, p.catalog != nil
}

func TestHealthWhileLoading(t *testing.T) {
	loader := &pendingLoader{}
	srv := newTestServer(&fakePlanner{}, trip.NewDatasets(loader))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthResponse{Status: "loading"}, decode[healthResponse](t, rec))

	loader.catalog = testDataset().Catalog()
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthResponse{Status: "ok", Stations: 3}, decode[healthResponse](t, rec))
}

func TestNearbyStationsCacheKeyMatchesSearch(t *testing.T) {
	srv := newTestServer(&fakePlanner{}, trip.Static(testDataset()))
	get := func(url string) nearbyResponse {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[nearbyResponse](t, rec)
	}

	first := get("/api/stations/nearby?lat=35.0000012&lng=-114.6")
	second := get("/api/stations/nearby?lat=35.0000044&lng=-114.6")
	assert.Equal(t, 35.0, first.Origin.Latitude)
	assert.Equal(t, first, second)

	uncached := get("/api/stations/nearby?lat=35.00001&lng=-114.6")
	assert.Equal(t, 35.00001, uncached.Origin.Latitude)
	assert.Equal(t, first.Count, uncached.Count)
}

func TestRateLimit(t *testing.T) {
	srv := New(&fakePlanner{}, trip.Static(testDataset()), Options{RateLimit: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", bytes.NewReader(nil)))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
