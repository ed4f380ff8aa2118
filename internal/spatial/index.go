// Package spatial provides the coarse radius prefilter used to find fuel
// stations near a route point.
//
// Distances inside the index are flat Euclidean distances in degrees. Results
// are a superset candidate list; callers re-check the geodesic distance.
package spatial

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/rubiojr/fuelroute/internal/geo"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	// side length of the degenerate box stored for each point
	pointTolerance = 1e-9
)

type entry struct {
	idx  int
	p    geo.Point
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// Index is an immutable R-tree over a fixed list of points. Position i in the
// input slice is reported back as index i.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// New bulk loads an index over points. Points that are not valid
// coordinates are skipped and never returned by queries.
func New(points []geo.Point) *Index {
	objs := make([]rtreego.Spatial, 0, len(points))
	for i, p := range points {
		if !p.Valid() {
			continue
		}
		objs = append(objs, &entry{
			idx:  i,
			p:    p,
			rect: rtreego.Point{p.Lat, p.Lng}.ToRect(pointTolerance),
		})
	}

	return &Index{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren, objs...),
		size: len(objs),
	}
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return ix.size
}

// RadiusQuery returns, in ascending order, the positions of every point
// within radiusDeg of p under the flat degree metric.
func (ix *Index) RadiusQuery(p geo.Point, radiusDeg float64) []int {
	if ix == nil || ix.size == 0 || radiusDeg < 0 || !p.Valid() {
		return nil
	}

	box := rtreego.Point{p.Lat, p.Lng}.ToRect(radiusDeg)
	var found []int
	for _, obj := range ix.tree.SearchIntersect(box) {
		e := obj.(*entry)
		if math.Hypot(e.p.Lat-p.Lat, e.p.Lng-p.Lng) <= radiusDeg {
			found = append(found, e.idx)
		}
	}
	sort.Ints(found)
	return found
}

// DegreesForMiles converts a search radius in miles to degrees using one
// degree of latitude as the unit. The result is too small in longitude away
// from the equator; it is an accepted approximation.
func DegreesForMiles(miles float64) float64 {
	return miles / geo.MilesPerDegree
}
