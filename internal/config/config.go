// Package config loads fuelroute settings from an optional config.yml and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rubiojr/fuelroute/internal/errs"
	"github.com/rubiojr/fuelroute/internal/geocode"
	"github.com/rubiojr/fuelroute/internal/planner"
	"github.com/rubiojr/fuelroute/pkg/ors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given. It may be absent.
const DefaultPath = "config.yml"

type Config struct {
	Stations  StationsConfig  `yaml:"stations"`
	Vehicle   VehicleConfig   `yaml:"vehicle"`
	Routing   RoutingConfig   `yaml:"routing"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Server    ServerConfig    `yaml:"server"`
}

type StationsConfig struct {
	Source string `yaml:"source" validate:"required"`
	Cache  string `yaml:"cache" validate:"required"`
}

type VehicleConfig struct {
	MaxRangeMiles        float64 `yaml:"max_range_miles" validate:"gt=0"`
	MilesPerGallon       float64 `yaml:"miles_per_gallon" validate:"gt=0"`
	RefuelThresholdMiles float64 `yaml:"refuel_threshold_miles" validate:"gte=0,ltefield=MaxRangeMiles"`
	MaxDeviationMiles    float64 `yaml:"max_deviation_miles" validate:"gt=0"`
}

type RoutingConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

type GeocodingConfig struct {
	Server string `yaml:"server" validate:"required,url"`
	// Interval is the minimum spacing between geocoding requests.
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
	// MemoTTL bounds how long catalog build lookups are remembered.
	MemoTTL time.Duration `yaml:"memo_ttl" validate:"gte=0"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`
	// RateLimit is the number of requests per minute allowed per client IP.
	RateLimit      int           `yaml:"rate_limit" validate:"gte=1"`
	NearbyCacheTTL time.Duration `yaml:"nearby_cache_ttl" validate:"gte=0"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Stations: StationsConfig{
			Source: "fuel-prices-for-be-assessment.csv",
			Cache:  "fuel_stations_cache.db",
		},
		Vehicle: VehicleConfig{
			MaxRangeMiles:        planner.DefaultMaxRangeMiles,
			MilesPerGallon:       planner.DefaultMilesPerGallon,
			RefuelThresholdMiles: planner.DefaultRefuelThresholdMiles,
			MaxDeviationMiles:    planner.DefaultMaxDeviationMiles,
		},
		Routing: RoutingConfig{
			BaseURL: ors.DefaultBaseURL,
			Timeout: ors.DefaultTimeout,
		},
		Geocoding: GeocodingConfig{
			Server:   geocode.DefaultServer,
			Interval: geocode.DefaultInterval,
			MemoTTL:  24 * time.Hour,
		},
		Server: ServerConfig{
			Port:           8000,
			RateLimit:      20,
			NearbyCacheTTL: 5 * time.Minute,
		},
	}
}

// Load reads path over the defaults, then applies the environment (a .env
// file in the working directory is loaded first when present). An empty
// path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	required := path != ""
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: error parsing %s: %v", errs.ErrConfiguration, path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("%w: error reading %s: %v", errs.ErrConfiguration, path, err)
	}

	// .env is optional
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ORS_API_KEY":             &c.Routing.APIKey,
		"ORS_BASE_URL":            &c.Routing.BaseURL,
		"NOMINATIM_SERVER":        &c.Geocoding.Server,
		"FUELROUTE_STATIONS_CSV":  &c.Stations.Source,
		"FUELROUTE_STATION_CACHE": &c.Stations.Cache,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: invalid PORT %q", errs.ErrConfiguration, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks field constraints. It does not require a routing key;
// see RequireRouting.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfiguration, err)
	}
	return nil
}

// RequireRouting fails when the routing API key is missing or still the
// sample placeholder.
func (c *Config) RequireRouting() error {
	return ors.CheckKey(c.Routing.APIKey)
}

func (c *Config) PlannerVehicle() planner.Vehicle {
	return planner.Vehicle{
		MaxRangeMiles:        c.Vehicle.MaxRangeMiles,
		MilesPerGallon:       c.Vehicle.MilesPerGallon,
		RefuelThresholdMiles: c.Vehicle.RefuelThresholdMiles,
		MaxDeviationMiles:    c.Vehicle.MaxDeviationMiles,
	}
}
