// Package satellite describes the physical properties of a spacecraft.
package satellite

import (
	"fmt"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// System is the read-only property set consumed by satellite dynamics.
// Areas are in m^2, mass in kg.
type System struct {
	Mass                    float64 `yaml:"mass"`
	CrossSectionalArea      float64 `yaml:"cross_sectional_area"`
	SurfaceArea             float64 `yaml:"surface_area"`
	DragCoefficient         float64 `yaml:"drag_coefficient"`
	ReflectivityCoefficient float64 `yaml:"reflectivity_coefficient"`
}

// Default returns a 100 kg smallsat with typical coefficients.
func Default() System {
	return System{
		Mass:                    100.0,
		CrossSectionalArea:      1.0,
		SurfaceArea:             4.0,
		DragCoefficient:         2.2,
		ReflectivityCoefficient: 1.2,
	}
}

// Validate checks the properties are physically meaningful.
func (s System) Validate() error {
	if s.Mass <= 0 {
		return fmt.Errorf("%w: satellite mass must be positive, got %g", dynamo.ErrInvalidConfiguration, s.Mass)
	}
	if s.CrossSectionalArea < 0 || s.SurfaceArea < 0 {
		return fmt.Errorf("%w: satellite areas must be non-negative", dynamo.ErrInvalidConfiguration)
	}
	if s.DragCoefficient < 0 || s.ReflectivityCoefficient < 0 {
		return fmt.Errorf("%w: satellite coefficients must be non-negative", dynamo.ErrInvalidConfiguration)
	}
	return nil
}

// BallisticCoefficient returns Cd*A/m, or zero for a massless system.
func (s System) BallisticCoefficient() float64 {
	if s.Mass == 0 {
		return 0
	}
	return s.DragCoefficient * s.CrossSectionalArea / s.Mass
}
