package dynamics

import (
	"fmt"
	"time"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/environment"
	"github.com/san-kum/orbitprop/internal/satellite"
	"github.com/san-kum/orbitprop/internal/trajectory"
)

// SatelliteDynamics bundles an environment, a satellite system and a current
// state. Its equations are the kinematics plus the Earth's gravity.
type SatelliteDynamics struct {
	env          *environment.Environment
	system       satellite.System
	state        trajectory.State
	contributors []Contributor
}

func NewSatelliteDynamics(env *environment.Environment, system satellite.System, state trajectory.State) (*SatelliteDynamics, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: satellite dynamics need an environment", dynamo.ErrInvalidConfiguration)
	}
	if err := system.Validate(); err != nil {
		return nil, err
	}
	earth, err := env.Body("Earth")
	if err != nil {
		return nil, err
	}
	gravity, err := NewCentralBodyGravity(earth)
	if err != nil {
		return nil, err
	}

	s := &SatelliteDynamics{
		env:          env,
		system:       system,
		contributors: []Contributor{NewPositionDerivative(), gravity},
	}
	if err := s.SetState(state); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SatelliteDynamics) Name() string { return "Satellite Dynamics" }

func (s *SatelliteDynamics) Environment() *environment.Environment { return s.env }

func (s *SatelliteDynamics) System() satellite.System { return s.system }

func (s *SatelliteDynamics) State() trajectory.State { return s.state }

// SetState replaces the state the equations are anchored to.
func (s *SatelliteDynamics) SetState(state trajectory.State) error {
	if !state.IsDefined() {
		return fmt.Errorf("%w: satellite state is undefined", dynamo.ErrInvalidConfiguration)
	}
	if state.Size() < 6 {
		return fmt.Errorf("%w: satellite state has %d coordinates", dynamo.ErrDimensionMismatch, state.Size())
	}
	s.state = state
	return nil
}

// Contributors returns a copy of the underlying contributor list.
func (s *SatelliteDynamics) Contributors() []Contributor {
	out := make([]Contributor, len(s.contributors))
	copy(out, s.contributors)
	return out
}

// Contribution sums the underlying contributors, so the whole satellite model
// can itself be aggregated with other terms.
func (s *SatelliteDynamics) Contribution(x dynamo.StateVector, instant time.Time) (dynamo.StateVector, error) {
	dx := make(dynamo.StateVector, len(x))
	for _, c := range s.contributors {
		part, err := c.Contribution(x, instant)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name(), err)
		}
		if len(part) != len(x) {
			return nil, fmt.Errorf("%w: %s returned %d components for a %d-dimensional state", dynamo.ErrDimensionMismatch, c.Name(), len(part), len(x))
		}
		dx = dx.Add(part)
	}
	return dx, nil
}

// DynamicalEquations returns the equations with time measured in seconds from
// the current state's instant.
func (s *SatelliteDynamics) DynamicalEquations() (dynamo.Equations, error) {
	return DynamicalEquations(s.contributors, s.state.Instant())
}

func (s *SatelliteDynamics) String() string {
	return fmt.Sprintf("Satellite Dynamics{central=%s mass=%.1fkg state=%s}", s.env.CentralBody().Name, s.system.Mass, s.state)
}
