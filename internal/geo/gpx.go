package geo

import (
	"fmt"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/tkrajina/gpxgo/gpx"
)

// LoadGPX reads the first track of a GPX file, falling back to the first
// route, and returns its points in order. Track segments are concatenated.
func LoadGPX(path string) ([]Point, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("error parsing gpx file %s: %w", path, err)
	}

	var points []Point
	if len(g.Tracks) > 0 {
		for _, seg := range g.Tracks[0].Segments {
			for _, p := range seg.Points {
				points = append(points, Point{Lat: p.Latitude, Lng: p.Longitude})
			}
		}
	} else if len(g.Routes) > 0 {
		for _, p := range g.Routes[0].Points {
			points = append(points, Point{Lat: p.Latitude, Lng: p.Longitude})
		}
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: gpx file %s has no track or route points", errs.ErrValidation, path)
	}
	return points, nil
}
