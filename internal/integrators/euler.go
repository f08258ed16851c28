// Package integrators provides single-step schemes for dynamo.Equations.
//
// Steppers keep scratch buffers between calls and are not safe for
// concurrent use; each solver owns its own instance.
package integrators

import (
	"fmt"
	"strings"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

type Euler struct {
	dx dynamo.StateVector
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f dynamo.Equations, x dynamo.StateVector, t, dt float64) (dynamo.StateVector, error) {
	if len(e.dx) != len(x) {
		e.dx = make(dynamo.StateVector, len(x))
	}
	if err := f(x, e.dx, t); err != nil {
		return nil, err
	}
	return x.AddScaled(dt, e.dx), nil
}

var registry = map[string]func() dynamo.Stepper{
	"euler":    func() dynamo.Stepper { return NewEuler() },
	"rk4":      func() dynamo.Stepper { return NewRK4() },
	"rk45":     func() dynamo.Stepper { return NewRK45() },
	"verlet":   func() dynamo.Stepper { return NewVerlet() },
	"leapfrog": func() dynamo.Stepper { return NewLeapfrog() },
}

// New returns a fresh stepper by name.
func New(name string) (dynamo.Stepper, error) {
	ctor, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown stepper %q", dynamo.ErrInvalidConfiguration, name)
	}
	return ctor(), nil
}

// Names lists the registered steppers.
func Names() []string {
	return []string{"euler", "rk4", "rk45", "verlet", "leapfrog"}
}
