// Package geocode resolves free text addresses to coordinates using a
// Nominatim server.
package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/gominatim"
	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
)

const (
	DefaultServer = "https://nominatim.openstreetmap.org/"
	// DefaultInterval follows the public Nominatim usage policy of at most
	// one request per second.
	DefaultInterval = time.Second
)

// Geocoder resolves a free text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geo.Point, error)
}

// Nominatim geocodes through gominatim, spacing requests by a minimum
// interval. It is safe for concurrent use; callers queue behind each other.
type Nominatim struct {
	interval time.Duration
	search   func(query string) ([]gominatim.SearchResult, error)

	mu   sync.Mutex
	last time.Time
}

func NewNominatim(server string, interval time.Duration) *Nominatim {
	if server == "" {
		server = DefaultServer
	}
	gominatim.SetServer(server)

	return &Nominatim{
		interval: interval,
		search: func(query string) ([]gominatim.SearchResult, error) {
			qry := gominatim.SearchQuery{
				Q: query,
			}
			return qry.Get()
		},
	}
}

// Geocode returns the first match for query. No match is ErrNotFound.
func (n *Nominatim) Geocode(ctx context.Context, query string) (geo.Point, error) {
	query = normalize(query)
	if query == "" {
		return geo.Point{}, fmt.Errorf("%w: empty location", errs.ErrValidation)
	}
	if err := n.wait(ctx); err != nil {
		return geo.Point{}, err
	}

	results, err := n.search(query)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: geocoding error: %v", errs.ErrUpstream, err)
	}
	if len(results) == 0 {
		return geo.Point{}, fmt.Errorf("%w: no results found for location: %s", errs.ErrNotFound, query)
	}

	return resultToPoint(results[0])
}

// wait blocks until interval has passed since the previous request.
func (n *Nominatim) wait(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.interval > 0 && !n.last.IsZero() {
		if d := n.interval - time.Since(n.last); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	n.last = time.Now()
	return nil
}

func resultToPoint(result gominatim.SearchResult) (geo.Point, error) {
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: error parsing latitude: %v", errs.ErrUpstream, err)
	}

	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: error parsing longitude: %v", errs.ErrUpstream, err)
	}

	return geo.Point{Lat: lat, Lng: lng}, nil
}

// normalize collapses whitespace so equivalent queries share cache keys.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
