// Package stations builds and caches the catalog of priced fuel stations.
//
// A catalog is read from a CSV price list, geocoded row by row and persisted
// to a SQLite cache so later process starts skip geocoding. Once built, a
// Catalog never changes.
package stations

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/fuelroute/internal/geo"
)

// Source records where a catalog was built from.
type Source string

const (
	SourceCache Source = "cache"
	SourceCSV   Source = "csv"
)

// Station is a single priced fuel station with resolved coordinates.
type Station struct {
	// ID is the station's position in its catalog.
	ID      int     `json:"id"`
	OPISID  int64   `json:"opis_id,omitempty"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	RackID  int64   `json:"rack_id,omitempty"`
	Lat     float64 `json:"latitude"`
	Lng     float64 `json:"longitude"`
	Price   float64 `json:"price_per_gallon"`
}

// Point returns the station coordinates.
func (s Station) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lng: s.Lng}
}

// FullAddress joins address, city and state the way they are displayed.
func (s Station) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s", s.Address, s.City, s.State)
}

// PricePlaces is the number of decimals a price is quoted and charged at.
const PricePlaces = 2

// PricePerGallon is the price rounded to cents, the value stops are chosen
// and charged by.
func (s Station) PricePerGallon() float64 {
	return geo.Round(s.Price, PricePlaces)
}

// ValidPrice reports whether the station carries a usable price.
func (s Station) ValidPrice() bool {
	return !math.IsNaN(s.Price) && !math.IsInf(s.Price, 0) && s.Price > 0
}

func (s Station) valid() bool {
	return s.Point().Valid() && s.ValidPrice()
}

// Catalog is an ordered, immutable list of stations.
type Catalog struct {
	stations []Station
	source   Source
	builtAt  time.Time
}

// NewCatalog drops stations without valid coordinates or price and numbers
// the rest by position.
func NewCatalog(rows []Station, source Source, builtAt time.Time) *Catalog {
	kept := make([]Station, 0, len(rows))
	for _, s := range rows {
		if !s.valid() {
			continue
		}
		s.ID = len(kept)
		kept = append(kept, s)
	}

	return &Catalog{
		stations: kept,
		source:   source,
		builtAt:  builtAt,
	}
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stations)
}

// At returns the station at position i.
func (c *Catalog) At(i int) Station {
	return c.stations[i]
}

// Stations returns a copy of the catalog rows.
func (c *Catalog) Stations() []Station {
	out := make([]Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Points returns the station coordinates in catalog order.
func (c *Catalog) Points() []geo.Point {
	points := make([]geo.Point, len(c.stations))
	for i, s := range c.stations {
		points[i] = s.Point()
	}
	return points
}

func (c *Catalog) Source() Source { return c.source }

func (c *Catalog) BuiltAt() time.Time { return c.builtAt }

// ParseDecimal parses a number that may use a comma as decimal separator.
func ParseDecimal(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	m, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return m, nil
}
