package ors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
)

const sampleResponse = `{
  "routes": [{
    "summary": {"distance": 270.51, "duration": 14642.3},
    "geometry": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"
  }]
}`

func newTestServer(t *testing.T, status int, body string, check func(*http.Request, DirectionsRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req DirectionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("error decoding request body: %v", err)
		}
		if check != nil {
			check(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientRejectsMissingKey(t *testing.T) {
	for _, key := range []string{"", "  ", PlaceholderKey} {
		_, err := NewClient("", key, nil)
		if !errors.Is(err, errs.ErrConfiguration) {
			t.Errorf("NewClient(%q) error = %v, want ErrConfiguration", key, err)
		}
	}
}

func TestRoute(t *testing.T) {
	from := geo.Point{Lat: 34.05, Lng: -118.24}
	to := geo.Point{Lat: 36.17, Lng: -115.14}

	srv := newTestServer(t, http.StatusOK, sampleResponse, func(r *http.Request, req DirectionsRequest) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v2/directions/driving-car" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "secret" {
			t.Errorf("Expected Authorization header 'secret', got '%s'", got)
		}
		if req.Units != "mi" || req.Preference != "fastest" {
			t.Errorf("Unexpected units/preference: %s/%s", req.Units, req.Preference)
		}
		if req.Options == nil || len(req.Options.AvoidFeatures) != 1 || req.Options.AvoidFeatures[0] != "ferries" {
			t.Errorf("Expected ferries to be avoided, got %+v", req.Options)
		}
		want := [][2]float64{{-118.24, 34.05}, {-115.14, 36.17}}
		if len(req.Coordinates) != 2 || req.Coordinates[0] != want[0] || req.Coordinates[1] != want[1] {
			t.Errorf("Expected lon/lat coordinates %v, got %v", want, req.Coordinates)
		}
	})

	client, err := NewClient(srv.URL+"/", "secret", srv.Client())
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	d, err := client.Route(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Route() failed: %v", err)
	}
	if d.DistanceMiles != 270.51 {
		t.Errorf("Expected distance 270.51, got %f", d.DistanceMiles)
	}
	if d.DurationSeconds != 14642.3 {
		t.Errorf("Expected duration 14642.3, got %f", d.DurationSeconds)
	}

	route, err := geo.DecodePolyline(d.Geometry)
	if err != nil {
		t.Fatalf("DecodePolyline() failed: %v", err)
	}
	if len(route) != 3 {
		t.Errorf("Expected 3 route points, got %d", len(route))
	}
}

func TestRouteStatusError(t *testing.T) {
	srv := newTestServer(t, http.StatusForbidden, `{"error":"Access to this API has been disallowed"}`, nil)
	client, err := NewClient(srv.URL, "secret", srv.Client())
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	_, err = client.Route(context.Background(), geo.Point{Lat: 1, Lng: 1}, geo.Point{Lat: 2, Lng: 2})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", se.Code)
	}
	if !errors.Is(err, errs.ErrUpstream) {
		t.Errorf("Expected ErrUpstream, got %v", err)
	}
}

func TestRouteMissingFields(t *testing.T) {
	tests := map[string]string{
		"no routes":    `{"routes": []}`,
		"no summary":   `{"routes": [{"geometry": "abc"}]}`,
		"no distance":  `{"routes": [{"summary": {"duration": 1}, "geometry": "abc"}]}`,
		"no duration":  `{"routes": [{"summary": {"distance": 1}, "geometry": "abc"}]}`,
		"no geometry":  `{"routes": [{"summary": {"distance": 1, "duration": 1}}]}`,
		"empty object": `{}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, http.StatusOK, body, nil)
			client, err := NewClient(srv.URL, "secret", srv.Client())
			if err != nil {
				t.Fatalf("NewClient() failed: %v", err)
			}

			_, err = client.Route(context.Background(), geo.Point{Lat: 1, Lng: 1}, geo.Point{Lat: 2, Lng: 2})
			if !errors.Is(err, errs.ErrUpstreamMissingField) {
				t.Errorf("Expected ErrUpstreamMissingField, got %v", err)
			}
			if !errors.Is(err, errs.ErrUpstream) {
				t.Errorf("Expected ErrUpstream, got %v", err)
			}
		})
	}
}

func TestRouteMalformedJSON(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `not json`, nil)
	client, err := NewClient(srv.URL, "secret", srv.Client())
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	_, err = client.Route(context.Background(), geo.Point{Lat: 1, Lng: 1}, geo.Point{Lat: 2, Lng: 2})
	if !errors.Is(err, errs.ErrUpstream) {
		t.Errorf("Expected ErrUpstream, got %v", err)
	}
	if errors.Is(err, errs.ErrUpstreamMissingField) {
		t.Errorf("Malformed JSON should not be reported as a missing field")
	}
}
