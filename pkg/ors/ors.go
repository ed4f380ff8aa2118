// Package ors provides a client for the OpenRouteService directions API.
package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
)

const (
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultTimeout = 30 * time.Second
	// PlaceholderKey is the value shipped in sample configuration files.
	PlaceholderKey = "YOUR_ORS_API_KEY_HERE"

	directionsPath = "/v2/directions/driving-car"
)

// StatusError is returned when the API answers with a status >= 400.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("routing API returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return errs.ErrUpstream
}

// Client talks to the directions endpoint. Nothing is retried.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// CheckKey reports whether apiKey is usable.
func CheckKey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || apiKey == PlaceholderKey {
		return fmt.Errorf("%w: OpenRouteService API key not configured", errs.ErrConfiguration)
	}
	return nil
}

// NewClient returns a client for baseURL. An empty baseURL uses the public
// service; a nil httpClient gets one with DefaultTimeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	if err := CheckKey(apiKey); err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}, nil
}

// Route asks for the fastest driving route from one point to another,
// avoiding ferries.
func (c *Client) Route(ctx context.Context, from, to geo.Point) (*Directions, error) {
	payload, err := json.Marshal(DirectionsRequest{
		Coordinates: [][2]float64{{from.Lng, from.Lat}, {to.Lng, to.Lat}},
		Units:       "mi",
		Preference:  "fastest",
		Format:      "json",
		Options: &Options{
			AvoidFeatures: []string{"ferries"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+directionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: error fetching route: %v", errs.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading response body: %v", errs.ErrUpstream, err)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(body)),
		}
	}

	var directions DirectionsResponse
	if err := json.Unmarshal(body, &directions); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling JSON: %v", errs.ErrUpstream, err)
	}

	return directions.toDirections()
}

func (r *DirectionsResponse) toDirections() (*Directions, error) {
	if len(r.Routes) == 0 {
		return nil, fmt.Errorf("%w: routes", errs.ErrUpstreamMissingField)
	}

	route := r.Routes[0]
	switch {
	case route.Summary == nil:
		return nil, fmt.Errorf("%w: routes[0].summary", errs.ErrUpstreamMissingField)
	case route.Summary.Distance == nil:
		return nil, fmt.Errorf("%w: routes[0].summary.distance", errs.ErrUpstreamMissingField)
	case route.Summary.Duration == nil:
		return nil, fmt.Errorf("%w: routes[0].summary.duration", errs.ErrUpstreamMissingField)
	case route.Geometry == nil || *route.Geometry == "":
		return nil, fmt.Errorf("%w: routes[0].geometry", errs.ErrUpstreamMissingField)
	}

	return &Directions{
		DistanceMiles:   *route.Summary.Distance,
		DurationSeconds: *route.Summary.Duration,
		Geometry:        *route.Geometry,
	}, nil
}
