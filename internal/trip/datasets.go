package trip

import (
	"context"
	"sync"

	"github.com/rubiojr/fuelroute/internal/planner"
	"github.com/rubiojr/fuelroute/internal/stations"
)

// CatalogLoader is satisfied by *stations.Loader.
type CatalogLoader interface {
	Load(ctx context.Context) (*stations.Catalog, error)
	Loaded() (*stations.Catalog, bool)
}

// Datasets builds the spatial index once per loaded catalog and hands out
// the same snapshot to every caller.
type Datasets struct {
	loader CatalogLoader

	mu      sync.Mutex
	catalog *stations.Catalog
	dataset *planner.Dataset
}

func NewDatasets(loader CatalogLoader) *Datasets {
	return &Datasets{loader: loader}
}

func (d *Datasets) Dataset(ctx context.Context) (*planner.Dataset, error) {
	c, err := d.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return d.snapshot(c), nil
}

// Ready returns the snapshot without waiting for a catalog build.
func (d *Datasets) Ready() (*planner.Dataset, bool) {
	c, ok := d.loader.Loaded()
	if !ok {
		return nil, false
	}
	return d.snapshot(c), true
}

func (d *Datasets) snapshot(c *stations.Catalog) *planner.Dataset {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.catalog != c {
		d.catalog = c
		d.dataset = planner.NewDataset(c)
	}
	return d.dataset
}

// DatasetFunc adapts a function to DatasetProvider.
type DatasetFunc func(ctx context.Context) (*planner.Dataset, error)

func (f DatasetFunc) Dataset(ctx context.Context) (*planner.Dataset, error) {
	return f(ctx)
}

// Static serves a fixed snapshot.
func Static(ds *planner.Dataset) DatasetFunc {
	return func(context.Context) (*planner.Dataset, error) {
		return ds, nil
	}
}
