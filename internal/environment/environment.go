package environment

import (
	"fmt"
	"time"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// Environment groups the central body and the other bodies available to a
// propagation. It is read-only once built and may be shared between
// concurrent propagations.
type Environment struct {
	instant time.Time
	central *CelestialBody
	bodies  []*CelestialBody
}

// New builds an environment around central. Body names must be unique.
func New(instant time.Time, central *CelestialBody, bodies ...*CelestialBody) (*Environment, error) {
	if central == nil {
		return nil, fmt.Errorf("%w: environment requires a central body", dynamo.ErrInvalidConfiguration)
	}
	seen := map[string]bool{central.Name: true}
	for _, b := range bodies {
		if b == nil {
			return nil, fmt.Errorf("%w: nil body", dynamo.ErrInvalidConfiguration)
		}
		if seen[b.Name] {
			return nil, fmt.Errorf("%w: duplicate body %q", dynamo.ErrInvalidConfiguration, b.Name)
		}
		seen[b.Name] = true
	}
	all := make([]*CelestialBody, 0, len(bodies))
	all = append(all, bodies...)
	return &Environment{instant: instant, central: central, bodies: all}, nil
}

// Default returns an Earth-centered environment with the Moon and the Sun.
func Default(instant time.Time) *Environment {
	env, _ := New(instant, NewEarth(GravitySpherical), NewMoon(), NewSun())
	return env
}

func (e *Environment) Instant() time.Time { return e.instant }

func (e *Environment) CentralBody() *CelestialBody { return e.central }

// Bodies returns the non-central bodies in insertion order.
func (e *Environment) Bodies() []*CelestialBody {
	out := make([]*CelestialBody, len(e.bodies))
	copy(out, e.bodies)
	return out
}

// Body looks a body up by name, the central body included.
func (e *Environment) Body(name string) (*CelestialBody, error) {
	if e.central.Name == name {
		return e.central, nil
	}
	for _, b := range e.bodies {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: no body named %q in environment", dynamo.ErrInvalidConfiguration, name)
}

func (e *Environment) HasBody(name string) bool {
	_, err := e.Body(name)
	return err == nil
}
