package integrators

import (
	"fmt"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// Verlet and Leapfrog treat the first half of the state as positions and the
// second half as velocities. The acceleration must depend on positions only.

func splitHalf(x dynamo.StateVector) (int, error) {
	if len(x)%2 != 0 {
		return 0, fmt.Errorf("%w: symplectic steppers need an even state dimension, got %d", dynamo.ErrDimensionMismatch, len(x))
	}
	return len(x) / 2, nil
}

type Verlet struct {
	dx, dxNew dynamo.StateVector
	scratch   dynamo.StateVector
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) ensureScratch(n int) {
	if len(v.scratch) != n {
		v.scratch = make(dynamo.StateVector, n)
		v.dx = make(dynamo.StateVector, n)
		v.dxNew = make(dynamo.StateVector, n)
	}
}

func (v *Verlet) Step(f dynamo.Equations, x dynamo.StateVector, t, dt float64) (dynamo.StateVector, error) {
	half, err := splitHalf(x)
	if err != nil {
		return nil, err
	}
	n := len(x)
	v.ensureScratch(n)

	if err := f(x, v.dx, t); err != nil {
		return nil, err
	}

	result := make(dynamo.StateVector, n)
	dt2 := dt * dt
	for i := 0; i < half; i++ {
		result[i] = x[i] + x[half+i]*dt + 0.5*v.dx[half+i]*dt2
	}

	for i := 0; i < half; i++ {
		v.scratch[i] = result[i]
		v.scratch[half+i] = x[half+i]
	}
	if err := f(v.scratch, v.dxNew, t+dt); err != nil {
		return nil, err
	}

	halfDt := 0.5 * dt
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + (v.dx[half+i]+v.dxNew[half+i])*halfDt
	}
	return result, nil
}

type Leapfrog struct {
	dx      dynamo.StateVector
	scratch dynamo.StateVector
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(f dynamo.Equations, x dynamo.StateVector, t, dt float64) (dynamo.StateVector, error) {
	half, err := splitHalf(x)
	if err != nil {
		return nil, err
	}
	n := len(x)
	if len(l.scratch) != n {
		l.scratch = make(dynamo.StateVector, n)
		l.dx = make(dynamo.StateVector, n)
	}

	if err := f(x, l.dx, t); err != nil {
		return nil, err
	}
	halfDt := dt * 0.5

	for i := 0; i < half; i++ {
		l.scratch[half+i] = x[half+i] + l.dx[half+i]*halfDt
	}

	result := make(dynamo.StateVector, n)
	for i := 0; i < half; i++ {
		result[i] = x[i] + l.scratch[half+i]*dt
		l.scratch[i] = result[i]
	}

	if err := f(l.scratch, l.dx, t+dt); err != nil {
		return nil, err
	}

	for i := 0; i < half; i++ {
		result[half+i] = l.scratch[half+i] + l.dx[half+i]*halfDt
	}
	return result, nil
}
