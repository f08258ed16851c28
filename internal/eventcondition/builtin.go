package eventcondition

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/orbit"
)

// NewDurationCondition fires on the elapsed time since the epoch. With
// AnyCrossing it stops a propagation at the given offset in either direction.
// An empty name defaults to "Duration Condition".
func NewDurationCondition(name string, criteria Criteria, seconds float64) (*RealCondition, error) {
	if name == "" {
		name = "Duration Condition"
	}
	return NewRealCondition(name, criteria, func(_ dynamo.StateVector, t float64) float64 {
		return t
	}, seconds)
}

// NewCoordinateCondition tests one component of the state vector.
func NewCoordinateCondition(name string, criteria Criteria, index int, target float64) (*RealCondition, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: coordinate index %d", dynamo.ErrInvalidConfiguration, index)
	}
	return NewRealCondition(name, criteria, func(x dynamo.StateVector, _ float64) float64 {
		if index >= len(x) {
			return math.NaN()
		}
		return x[index]
	}, target)
}

// NewCOECondition tests a classical orbital element of a cartesian state about
// a body of gravitational parameter mu. Angular elements use wrap-aware
// comparisons.
func NewCOECondition(name string, criteria Criteria, element orbit.Element, target, mu float64) (Condition, error) {
	if mu <= 0 {
		return nil, fmt.Errorf("%w: gravitational parameter must be positive", dynamo.ErrInvalidConfiguration)
	}
	eval := func(x dynamo.StateVector, _ float64) float64 {
		if len(x) < 6 {
			return math.NaN()
		}
		coe, err := orbit.ElementsFromCartesian(r3.Vec{X: x[0], Y: x[1], Z: x[2]}, r3.Vec{X: x[3], Y: x[4], Z: x[5]}, mu)
		if err != nil {
			return math.NaN()
		}
		return coe.Value(element)
	}

	switch element {
	case orbit.SemiMajorAxis, orbit.Eccentricity:
		return NewRealCondition(name, criteria, eval, target)
	case orbit.Inclination, orbit.RAAN, orbit.AOP, orbit.TrueAnomaly:
		return NewAngularCondition(name, criteria, eval, target)
	}
	return nil, fmt.Errorf("%w: unsupported element %s", dynamo.ErrInvalidConfiguration, element)
}
