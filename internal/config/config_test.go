package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/planner"
	"github.com/rubiojr/fuelroute/pkg/ors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, planner.DefaultVehicle(), cfg.PlannerVehicle())
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FUELROUTE_STATIONS_CSV", "")
	path := writeConfig(t, `
stations:
  source: data/prices.csv
vehicle:
  max_range_miles: 600
  refuel_threshold_miles: 150
routing:
  timeout: 10s
server:
  port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/prices.csv", cfg.Stations.Source)
	assert.Equal(t, Default().Stations.Cache, cfg.Stations.Cache)
	assert.Equal(t, 600.0, cfg.Vehicle.MaxRangeMiles)
	assert.Equal(t, 150.0, cfg.Vehicle.RefuelThresholdMiles)
	assert.Equal(t, 10.0, cfg.Vehicle.MilesPerGallon)
	assert.Equal(t, 10*time.Second, cfg.Routing.Timeout)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\nrouting:\n  api_key: from-file\n")
	t.Setenv("ORS_API_KEY", "from-env")
	t.Setenv("PORT", "7070")
	t.Setenv("FUELROUTE_STATION_CACHE", "/tmp/stations.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Routing.APIKey)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/tmp/stations.db", cfg.Stations.Cache)
	assert.NoError(t, cfg.RequireRouting())
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"threshold above range": "vehicle:\n  max_range_miles: 100\n  refuel_threshold_miles: 200\n",
		"zero mpg":              "vehicle:\n  miles_per_gallon: 0\n",
		"bad port":              "server:\n  port: 70000\n",
		"bad url":               "routing:\n  base_url: not a url\n",
		"bad yaml":              "vehicle: [",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.ErrorIs(t, err, errs.ErrConfiguration)
		})
	}
}

func TestLoadInvalidPortEnv(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load(writeConfig(t, ""))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestRequireRouting(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.RequireRouting(), errs.ErrConfiguration)

	cfg.Routing.APIKey = ors.PlaceholderKey
	assert.ErrorIs(t, cfg.RequireRouting(), errs.ErrConfiguration)

	cfg.Routing.APIKey = "5b3ce3597851110001cf6248"
	assert.NoError(t, cfg.RequireRouting())
}
