package solver

import (
	"fmt"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/integrators"
)

// Config selects the stepping scheme and its tolerances. Durations are in
// seconds.
type Config struct {
	Stepper  string  `yaml:"stepper"`
	Adaptive bool    `yaml:"adaptive"`
	StepSize float64 `yaml:"step_size"`

	// Adaptive mode only.
	Tolerance   float64 `yaml:"tolerance"`
	MinStepSize float64 `yaml:"min_step_size"`
	MaxStepSize float64 `yaml:"max_step_size"`

	RootTolerance     float64 `yaml:"root_tolerance"`
	MaxRootIterations int     `yaml:"max_root_iterations"`
	MaxSteps          int     `yaml:"max_steps"`
}

func DefaultConfig() Config {
	return Config{
		Stepper:           "rk4",
		StepSize:          10.0,
		Tolerance:         1e-9,
		MinStepSize:       1e-6,
		MaxStepSize:       300.0,
		RootTolerance:     1e-6,
		MaxRootIterations: 100,
		MaxSteps:          10_000_000,
	}
}

func (c Config) Validate() error {
	stepper, err := integrators.New(c.Stepper)
	if err != nil {
		return err
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("%w: step size must be positive, got %g", dynamo.ErrInvalidConfiguration, c.StepSize)
	}
	if c.RootTolerance <= 0 {
		return fmt.Errorf("%w: root tolerance must be positive, got %g", dynamo.ErrInvalidConfiguration, c.RootTolerance)
	}
	if c.MaxRootIterations <= 0 {
		return fmt.Errorf("%w: max root iterations must be positive", dynamo.ErrInvalidConfiguration)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("%w: max steps must be positive", dynamo.ErrInvalidConfiguration)
	}
	if !c.Adaptive {
		return nil
	}
	if _, ok := stepper.(dynamo.AdaptiveStepper); !ok {
		return fmt.Errorf("%w: stepper %q has no error estimate for adaptive stepping", dynamo.ErrInvalidConfiguration, c.Stepper)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", dynamo.ErrInvalidConfiguration)
	}
	if c.MinStepSize <= 0 || c.MaxStepSize < c.MinStepSize {
		return fmt.Errorf("%w: step bounds [%g, %g] are invalid", dynamo.ErrInvalidConfiguration, c.MinStepSize, c.MaxStepSize)
	}
	return nil
}
