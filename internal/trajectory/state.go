// Package trajectory holds time-stamped orbital states and their builders.
package trajectory

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// GCRF is the default inertial frame identity.
const GCRF = "GCRF"

// State is a coordinate vector at an instant in a reference frame. It is a
// value type: constructors copy the coordinates and nothing mutates them.
type State struct {
	instant     time.Time
	coordinates dynamo.StateVector
	frame       string
}

// NewState copies coordinates into a new state.
func NewState(instant time.Time, coordinates dynamo.StateVector, frame string) State {
	return State{instant: instant, coordinates: coordinates.Clone(), frame: frame}
}

// FromPositionVelocity builds a 6-dimensional cartesian state.
func FromPositionVelocity(instant time.Time, r, v r3.Vec, frame string) State {
	return State{
		instant:     instant,
		coordinates: dynamo.StateVector{r.X, r.Y, r.Z, v.X, v.Y, v.Z},
		frame:       frame,
	}
}

func (s State) IsDefined() bool {
	return !s.instant.IsZero() && len(s.coordinates) > 0 && s.frame != ""
}

func (s State) Instant() time.Time { return s.instant }

func (s State) Frame() string { return s.frame }

func (s State) Size() int { return len(s.coordinates) }

// Coordinates returns a copy of the coordinate vector.
func (s State) Coordinates() dynamo.StateVector { return s.coordinates.Clone() }

// Position returns the first three coordinates.
func (s State) Position() r3.Vec {
	if len(s.coordinates) < 3 {
		return r3.Vec{}
	}
	return r3.Vec{X: s.coordinates[0], Y: s.coordinates[1], Z: s.coordinates[2]}
}

// Velocity returns coordinates 3 to 5.
func (s State) Velocity() r3.Vec {
	if len(s.coordinates) < 6 {
		return r3.Vec{}
	}
	return r3.Vec{X: s.coordinates[3], Y: s.coordinates[4], Z: s.coordinates[5]}
}

// WithCoordinates returns a state at instant with the same frame.
func (s State) WithCoordinates(instant time.Time, coordinates dynamo.StateVector) State {
	return NewState(instant, coordinates, s.frame)
}

// Add sums two states defined at the same instant in the same frame.
func (s State) Add(other State) (State, error) {
	if err := s.compatible(other); err != nil {
		return State{}, err
	}
	return State{instant: s.instant, coordinates: s.coordinates.Add(other.coordinates), frame: s.frame}, nil
}

// Sub subtracts two states defined at the same instant in the same frame.
func (s State) Sub(other State) (State, error) {
	if err := s.compatible(other); err != nil {
		return State{}, err
	}
	return State{instant: s.instant, coordinates: s.coordinates.Sub(other.coordinates), frame: s.frame}, nil
}

func (s State) compatible(other State) error {
	if !s.instant.Equal(other.instant) {
		return fmt.Errorf("%w: states at different instants", dynamo.ErrInvalidConfiguration)
	}
	if s.frame != other.frame {
		return fmt.Errorf("%w: states in frames %s and %s", dynamo.ErrInvalidConfiguration, s.frame, other.frame)
	}
	if len(s.coordinates) != len(other.coordinates) {
		return dynamo.ErrDimensionMismatch
	}
	return nil
}

// Equal reports whether both states hold identical values.
func (s State) Equal(other State) bool {
	if !s.instant.Equal(other.instant) || s.frame != other.frame || len(s.coordinates) != len(other.coordinates) {
		return false
	}
	for i := range s.coordinates {
		if s.coordinates[i] != other.coordinates[i] {
			return false
		}
	}
	return true
}

func (s State) String() string {
	return fmt.Sprintf("State{%s %s %v}", s.instant.UTC().Format(time.RFC3339Nano), s.frame, s.coordinates)
}
