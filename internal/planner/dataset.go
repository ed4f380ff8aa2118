package planner

import (
	"github.com/rubiojr/fuelroute/internal/geo"
	"github.com/rubiojr/fuelroute/internal/spatial"
	"github.com/rubiojr/fuelroute/internal/stations"
)

// Dataset pairs a station catalog with the spatial index built from it. It
// is immutable and safe to share between concurrent planning calls. A new
// catalog means a new Dataset.
type Dataset struct {
	catalog *stations.Catalog
	index   *spatial.Index
}

// NewDataset indexes the catalog's coordinates.
func NewDataset(c *stations.Catalog) *Dataset {
	if c == nil {
		return &Dataset{}
	}
	return &Dataset{
		catalog: c,
		index:   spatial.New(c.Points()),
	}
}

func (d *Dataset) Catalog() *stations.Catalog {
	if d == nil {
		return nil
	}
	return d.catalog
}

// Len returns the number of stations available for planning.
func (d *Dataset) Len() int {
	if d == nil || d.index == nil {
		return 0
	}
	return d.catalog.Len()
}

func (d *Dataset) available() bool {
	return d.Len() > 0 && d.index.Len() > 0
}

// Candidate is a station near a search point.
type Candidate struct {
	Station       stations.Station
	DistanceMiles float64
}

// Nearby returns the priced stations within radiusMiles (geodesic) of p, in
// catalog order.
func (d *Dataset) Nearby(p geo.Point, radiusMiles float64) []Candidate {
	if !d.available() {
		return nil
	}

	var out []Candidate
	for _, idx := range d.index.RadiusQuery(p, spatial.DegreesForMiles(radiusMiles)) {
		st := d.catalog.At(idx)
		dist := geo.Distance(p, st.Point())
		if dist > radiusMiles || !st.ValidPrice() {
			continue
		}
		out = append(out, Candidate{Station: st, DistanceMiles: dist})
	}
	return out
}
