package geocode

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
)

const memoCleanupInterval = 10 * time.Minute

type memoEntry struct {
	point geo.Point
	err   error
}

// Memo remembers answers from another Geocoder, so a price list with many
// rows at the same address geocodes it once. Not found answers are
// remembered too; upstream failures are not.
type Memo struct {
	next  Geocoder
	cache *cache.Cache
}

func NewMemo(next Geocoder, ttl time.Duration) *Memo {
	return &Memo{
		next:  next,
		cache: cache.New(ttl, memoCleanupInterval),
	}
}

func (m *Memo) Geocode(ctx context.Context, query string) (geo.Point, error) {
	key := strings.ToLower(normalize(query))
	if cached, ok := m.cache.Get(key); ok {
		entry := cached.(memoEntry)
		return entry.point, entry.err
	}

	p, err := m.next.Geocode(ctx, query)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return p, err
	}
	m.cache.Set(key, memoEntry{point: p, err: err}, cache.DefaultExpiration)
	return p, err
}

// Len returns the number of remembered queries.
func (m *Memo) Len() int {
	return m.cache.ItemCount()
}
