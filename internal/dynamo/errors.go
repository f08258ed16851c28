package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for propagation operations.
var (
	// ErrUndefinedModel indicates a celestial body model required by a contributor is undefined.
	ErrUndefinedModel = errors.New("dynamo: undefined model")

	// ErrInvalidConfiguration indicates an object was built or invoked with an unusable configuration.
	ErrInvalidConfiguration = errors.New("dynamo: invalid configuration")

	// ErrNumericalDivergence indicates a non-finite derivative or state during integration.
	ErrNumericalDivergence = errors.New("dynamo: numerical divergence (NaN or Inf detected)")

	// ErrDimensionMismatch indicates a contribution whose length differs from the state dimension.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and contribution")

	// ErrStepTooSmall indicates the adaptive timestep fell below its minimum without meeting tolerance.
	ErrStepTooSmall = fmt.Errorf("%w: adaptive timestep below minimum", ErrNumericalDivergence)

	// ErrContractViolation indicates an event bracket that does not contain a satisfying transition.
	ErrContractViolation = fmt.Errorf("%w: event bracket does not contain a satisfying transition", ErrInvalidConfiguration)
)

// SimulationError wraps an error with integration context.
type SimulationError struct {
	Step    int
	Time    float64
	State   StateVector
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
