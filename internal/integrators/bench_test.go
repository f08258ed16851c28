package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

func twoBody(x, dxdt dynamo.StateVector, t float64) error {
	const mu = 3.986004418e14
	r2 := x[0]*x[0] + x[1]*x[1] + x[2]*x[2]
	k := -mu / (r2 * math.Sqrt(r2))
	dxdt[0], dxdt[1], dxdt[2] = x[3], x[4], x[5]
	dxdt[3], dxdt[4], dxdt[5] = k*x[0], k*x[1], k*x[2]
	return nil
}

func benchStepper(b *testing.B, s dynamo.Stepper) {
	x := dynamo.StateVector{7e6, 0, 0, 0, 7546, 0}
	var err error

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, err = s.Step(twoBody, x, 0, 1)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEuler(b *testing.B)    { benchStepper(b, NewEuler()) }
func BenchmarkRK4(b *testing.B)      { benchStepper(b, NewRK4()) }
func BenchmarkRK45(b *testing.B)     { benchStepper(b, NewRK45()) }
func BenchmarkVerlet(b *testing.B)   { benchStepper(b, NewVerlet()) }
func BenchmarkLeapfrog(b *testing.B) { benchStepper(b, NewLeapfrog()) }
