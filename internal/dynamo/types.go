package dynamo

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// StateVector is the coordinate vector integrated by the solver.
// Orbital states are laid out as [x, y, z, vx, vy, vz] in meters and m/s.
type StateVector []float64

func (s StateVector) Clone() StateVector {
	c := make(StateVector, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func (s StateVector) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s StateVector) Norm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, 2)
}

func (s StateVector) Add(other StateVector) StateVector {
	result := s.Clone()
	n := min(len(s), len(other))
	floats.Add(result[:n], other[:n])
	return result
}

func (s StateVector) Sub(other StateVector) StateVector {
	result := s.Clone()
	n := min(len(s), len(other))
	floats.Sub(result[:n], other[:n])
	return result
}

func (s StateVector) Scale(factor float64) StateVector {
	result := s.Clone()
	floats.Scale(factor, result)
	return result
}

// AddScaled returns s + alpha*other without modifying either operand.
func (s StateVector) AddScaled(alpha float64, other StateVector) StateVector {
	result := s.Clone()
	n := min(len(s), len(other))
	floats.AddScaled(result[:n], alpha, other[:n])
	return result
}

func (s StateVector) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.FormatFloat(v, 'e', 15, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equations is the right-hand side of dx/dt = f(x, t). Implementations write
// the derivative of x into dxdt, which has the same length as x. The time t is
// an offset in seconds from the epoch the equations were built for.
type Equations func(x, dxdt StateVector, t float64) error

// Observer is notified of every accepted integration sub-step.
type Observer interface {
	OnStep(x StateVector, t float64)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(x StateVector, t float64)

func (f ObserverFunc) OnStep(x StateVector, t float64) { f(x, t) }

// Metric accumulates a scalar over the accepted sub-steps of a propagation.
type Metric interface {
	Observer
	Name() string
	Value() float64
	Reset()
}

// Stepper advances x by one sub-step of signed size dt.
type Stepper interface {
	Step(f Equations, x StateVector, t, dt float64) (StateVector, error)
}

// AdaptiveStepper additionally reports its embedded error estimate. errRatio
// is the estimated local error over the tolerance: the step is acceptable when
// errRatio <= 1. dtNext is the suggested size of the following step, with the
// sign of dt.
type AdaptiveStepper interface {
	Stepper
	StepAdaptive(f Equations, x StateVector, t, dt, tol float64) (xNew StateVector, errRatio, dtNext float64, err error)
}
