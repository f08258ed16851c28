// Package dynamics composes physical contributions into the right-hand side
// integrated by the solver.
//
// Any type implementing [Contributor] is a valid term. [DynamicalEquations]
// sums the contributions of an ordered list into a single [dynamo.Equations].
package dynamics

import (
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// Contributor computes one additive term of the state derivative. It must be
// pure in its inputs: the solver evaluates it many times per step.
type Contributor interface {
	Name() string
	Contribution(x dynamo.StateVector, instant time.Time) (dynamo.StateVector, error)
}

// DynamicalEquations returns dx/dt as the sum of the contributions, evaluated
// in the given order. The equations' time argument is in seconds from epoch.
func DynamicalEquations(contributors []Contributor, epoch time.Time) (dynamo.Equations, error) {
	if len(contributors) == 0 {
		return nil, fmt.Errorf("%w: dynamics require at least one contributor", dynamo.ErrInvalidConfiguration)
	}
	for i, c := range contributors {
		if c == nil {
			return nil, fmt.Errorf("%w: contributor %d is nil", dynamo.ErrInvalidConfiguration, i)
		}
	}
	list := slices.Clone(contributors)

	return func(x, dxdt dynamo.StateVector, t float64) error {
		if len(dxdt) != len(x) {
			return fmt.Errorf("%w: derivative buffer has %d components for a %d-dimensional state", dynamo.ErrDimensionMismatch, len(dxdt), len(x))
		}
		clear(dxdt)
		instant := InstantAt(epoch, t)
		for _, c := range list {
			contribution, err := c.Contribution(x, instant)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			if len(contribution) != len(x) {
				return fmt.Errorf("%w: %s returned %d components for a %d-dimensional state", dynamo.ErrDimensionMismatch, c.Name(), len(contribution), len(x))
			}
			floats.Add(dxdt, contribution)
		}
		return nil
	}, nil
}

// InstantAt converts an offset in seconds from epoch to an instant.
func InstantAt(epoch time.Time, seconds float64) time.Time {
	return epoch.Add(time.Duration(math.Round(seconds * float64(time.Second))))
}

// Offset is the inverse of InstantAt.
func Offset(epoch, instant time.Time) float64 {
	return instant.Sub(epoch).Seconds()
}

func requireCartesian(x dynamo.StateVector) error {
	if len(x) < 6 {
		return fmt.Errorf("%w: cartesian dynamics need at least 6 coordinates, got %d", dynamo.ErrDimensionMismatch, len(x))
	}
	return nil
}
