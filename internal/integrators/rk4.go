package integrators

import "github.com/san-kum/orbitprop/internal/dynamo"

type RK4 struct {
	k1, k2, k3, k4 dynamo.StateVector
	scratch        dynamo.StateVector
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.StateVector, n)
		r.k2 = make(dynamo.StateVector, n)
		r.k3 = make(dynamo.StateVector, n)
		r.k4 = make(dynamo.StateVector, n)
		r.scratch = make(dynamo.StateVector, n)
	}
}

func (r *RK4) Step(f dynamo.Equations, x dynamo.StateVector, t, dt float64) (dynamo.StateVector, error) {
	n := len(x)
	r.ensureScratch(n)

	if err := f(x, r.k1, t); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	if err := f(r.scratch, r.k2, t+dt*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	if err := f(r.scratch, r.k3, t+dt*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	if err := f(r.scratch, r.k4, t+dt); err != nil {
		return nil, err
	}

	result := make(dynamo.StateVector, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return result, nil
}
