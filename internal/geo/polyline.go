package geo

import (
	"fmt"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/twpayne/go-polyline"
)

// DecodePolyline decodes a precision 5 encoded polyline. Malformed input
// fails the whole call; no partial route is returned.
func DecodePolyline(encoded string) ([]Point, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding polyline: %v", errs.ErrValidation, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: decoding polyline: %d trailing bytes", errs.ErrValidation, len(rest))
	}

	points := make([]Point, 0, len(coords))
	for _, c := range coords {
		if len(c) != 2 {
			return nil, fmt.Errorf("%w: decoding polyline: coordinate with %d dimensions", errs.ErrValidation, len(c))
		}
		points = append(points, Point{Lat: c[0], Lng: c[1]})
	}
	return points, nil
}

// EncodePolyline is the inverse of DecodePolyline.
func EncodePolyline(points []Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}
