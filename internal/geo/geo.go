// Package geo holds the coordinate type shared by the planner and its
// collaborators, the geodesic distance primitive and the route geometry
// decoders (encoded polylines and GPX files).
package geo

import (
	"fmt"
	"math"

	"github.com/tkrajina/gpxgo/gpx"
)

const (
	MetersPerMile = 1609.344
	// MilesPerDegree is the length of one degree of latitude. Applied to
	// longitude as well it overestimates east-west distances away from the
	// equator.
	MilesPerDegree = 69.0
	decimalBase    = 10
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Valid reports whether both components are finite and inside WGS84 bounds.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the great-circle distance between a and b in miles.
func Distance(a, b Point) float64 {
	return gpx.Distance2D(a.Lat, a.Lng, b.Lat, b.Lng, true) / MetersPerMile
}

// Length returns the summed segment distance of a route in miles.
func Length(route []Point) float64 {
	var total float64
	for i := 1; i < len(route); i++ {
		total += Distance(route[i-1], route[i])
	}
	return total
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	factor := math.Pow(decimalBase, float64(places))
	return math.Round(v*factor) / factor
}
