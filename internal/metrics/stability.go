package metrics

import (
	"math"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// Altitude tracks the lowest altitude above a spherical body and reports it
// as its value. Violations counts samples below the floor.
type Altitude struct {
	name       string
	radius     float64
	floor      float64
	minimum    float64
	violations int
	samples    int
}

func NewAltitude(radius, floor float64) *Altitude {
	return &Altitude{
		name:    "min_altitude",
		radius:  radius,
		floor:   floor,
		minimum: math.Inf(1),
	}
}

func (a *Altitude) Name() string {
	return a.name
}

func (a *Altitude) OnStep(x dynamo.StateVector, t float64) {
	if len(x) < 3 {
		return
	}
	a.samples++
	h := math.Sqrt(x[0]*x[0]+x[1]*x[1]+x[2]*x[2]) - a.radius
	a.minimum = math.Min(a.minimum, h)
	if h < a.floor {
		a.violations++
	}
}

func (a *Altitude) Value() float64 {
	if a.samples == 0 {
		return 0
	}
	return a.minimum
}

// Violations is the number of samples below the floor.
func (a *Altitude) Violations() int { return a.violations }

func (a *Altitude) Reset() {
	a.minimum = math.Inf(1)
	a.violations = 0
	a.samples = 0
}
