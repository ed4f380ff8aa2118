package stations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geo"
	"golang.org/x/sync/singleflight"
)

const defaultProgressEvery = 500

// Geocoder resolves a free text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geo.Point, error)
}

// Options configures where a Loader reads and caches stations.
type Options struct {
	SourcePath string
	CachePath  string
	// Refresh ignores an existing cache and rebuilds from SourcePath.
	Refresh bool
	// ProgressEvery logs geocoding progress every N rows.
	ProgressEvery int
}

// Loader builds the station catalog once and hands the same Catalog to every
// later caller. Concurrent first calls share a single build. A failed build
// is not remembered and the next call tries again.
type Loader struct {
	opts     Options
	geocoder Geocoder
	log      *slog.Logger
	now      func() time.Time

	group   singleflight.Group
	mu      sync.RWMutex
	catalog *Catalog
}

func NewLoader(opts Options, geocoder Geocoder, logger *slog.Logger) *Loader {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	return &Loader{
		opts:     opts,
		geocoder: geocoder,
		log:      logger,
		now:      time.Now,
	}
}

// Load returns the catalog, building it on first use. The build runs
// detached from ctx: a caller that gives up stops waiting, but the build
// carries on for the others.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	if c := l.loaded(); c != nil {
		return c, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buildCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan("catalog", func() (any, error) {
		if c := l.loaded(); c != nil {
			return c, nil
		}
		c, err := l.build(buildCtx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.catalog = c
		l.mu.Unlock()
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Catalog), nil
	}
}

// Loaded returns the catalog if a build has finished, without starting one.
func (l *Loader) Loaded() (*Catalog, bool) {
	c := l.loaded()
	return c, c != nil
}

func (l *Loader) loaded() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.catalog
}

func (l *Loader) build(ctx context.Context) (*Catalog, error) {
	if !l.opts.Refresh {
		c, err := l.fromCache(ctx)
		if err == nil {
			l.log.Info("Loaded fuel stations from cache", "path", l.opts.CachePath, "stations", c.Len())
			return c, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			l.log.Debug("No station cache found", "path", l.opts.CachePath)
		} else {
			l.log.Warn("Error loading station cache, rebuilding from source", "path", l.opts.CachePath, "error", err)
		}
	}

	rows, err := readSourceFile(l.opts.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: station source %s not found and no usable cache", errs.ErrDataUnavailable, l.opts.SourcePath)
		}
		return nil, fmt.Errorf("error reading station source: %w", err)
	}

	stations, err := l.geocodeRows(ctx, rows)
	if err != nil {
		return nil, err
	}
	c := NewCatalog(stations, SourceCSV, l.now())
	l.log.Info("Finished geocoding fuel stations", "rows", len(rows), "usable", c.Len())

	if err := l.persist(ctx, c); err != nil {
		l.log.Warn("Could not save geocoded stations to cache", "path", l.opts.CachePath, "error", err)
	}
	return c, nil
}

func (l *Loader) fromCache(ctx context.Context) (*Catalog, error) {
	if l.opts.CachePath == "" {
		return nil, os.ErrNotExist
	}
	if _, err := os.Stat(l.opts.CachePath); err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, l.opts.CachePath, l.log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	rows, err := store.LoadStations(ctx)
	if err != nil {
		return nil, err
	}
	builtAt, err := store.BuiltAt(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(rows, SourceCache, builtAt), nil
}

// geocodeRows resolves coordinates for every row. A row the geocoder cannot
// resolve is skipped; only context cancellation aborts the build.
func (l *Loader) geocodeRows(ctx context.Context, rows []sourceRow) ([]Station, error) {
	if l.geocoder == nil {
		return nil, fmt.Errorf("%w: no geocoder configured to build the station catalog", errs.ErrConfiguration)
	}

	stations := make([]Station, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && i%l.opts.ProgressEvery == 0 {
			l.log.Info("Geocoding stations", "done", i, "total", len(rows))
		}

		if row.price == nil {
			continue
		}

		p, err := l.geocoder.Geocode(ctx, row.geocodeQuery())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.log.Debug("Could not geocode station", "name", row.station.Name, "error", err)
			continue
		}

		st := row.station
		st.Lat, st.Lng = p.Lat, p.Lng
		st.Price = *row.price
		stations = append(stations, st)
	}
	return stations, nil
}

// persist writes c to the cache. A cache file that cannot be opened or
// written is removed and written again from scratch.
func (l *Loader) persist(ctx context.Context, c *Catalog) error {
	if l.opts.CachePath == "" {
		return nil
	}

	err := l.save(ctx, c)
	if err == nil || ctx.Err() != nil {
		return err
	}
	l.log.Warn("Replacing unusable station cache", "path", l.opts.CachePath, "error", err)
	if err := removeCache(l.opts.CachePath); err != nil {
		return err
	}
	return l.save(ctx, c)
}

func (l *Loader) save(ctx context.Context, c *Catalog) error {
	store, err := OpenStore(ctx, l.opts.CachePath, l.log)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SaveStations(ctx, c.stations, c.builtAt)
}

// removeCache deletes the database file and its WAL companions.
func removeCache(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error removing station cache: %w", err)
		}
	}
	return nil
}
