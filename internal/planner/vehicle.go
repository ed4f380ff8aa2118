package planner

import (
	"fmt"

	"github.com/rubiojr/fuelroute/internal/errs"
)

const (
	DefaultMaxRangeMiles        = 500
	DefaultMilesPerGallon       = 10
	DefaultRefuelThresholdMiles = 200
	DefaultMaxDeviationMiles    = 10
)

// Vehicle describes the range model used when planning.
type Vehicle struct {
	MaxRangeMiles  float64
	MilesPerGallon float64
	// RefuelThresholdMiles starts a station search once the remaining range
	// is at or below it.
	RefuelThresholdMiles float64
	// MaxDeviationMiles is the farthest a station may be from the route point
	// being evaluated.
	MaxDeviationMiles float64
}

func DefaultVehicle() Vehicle {
	return Vehicle{
		MaxRangeMiles:        DefaultMaxRangeMiles,
		MilesPerGallon:       DefaultMilesPerGallon,
		RefuelThresholdMiles: DefaultRefuelThresholdMiles,
		MaxDeviationMiles:    DefaultMaxDeviationMiles,
	}
}

// TankGallons is the tank capacity implied by range and fuel economy.
func (v Vehicle) TankGallons() float64 {
	return v.MaxRangeMiles / v.MilesPerGallon
}

func (v Vehicle) Validate() error {
	switch {
	case v.MaxRangeMiles <= 0:
		return fmt.Errorf("%w: max range must be positive, got %g", errs.ErrValidation, v.MaxRangeMiles)
	case v.MilesPerGallon <= 0:
		return fmt.Errorf("%w: fuel economy must be positive, got %g", errs.ErrValidation, v.MilesPerGallon)
	case v.RefuelThresholdMiles < 0:
		return fmt.Errorf("%w: refuel threshold must not be negative, got %g", errs.ErrValidation, v.RefuelThresholdMiles)
	case v.MaxDeviationMiles < 0:
		return fmt.Errorf("%w: max deviation must not be negative, got %g", errs.ErrValidation, v.MaxDeviationMiles)
	}
	return nil
}
