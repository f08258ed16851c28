// Package metrics scores propagations: conservation checks observed step by
// step, and prometheus counters for whole runs.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/orbit"
)

// Energy is the mean specific orbital energy over the observed samples.
type Energy struct {
	name        string
	mu          float64
	samples     int
	totalEnergy float64
}

func NewEnergy(mu float64) *Energy {
	return &Energy{name: "energy", mu: mu}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) OnStep(x dynamo.StateVector, t float64) {
	energy, ok := specificEnergy(x, e.mu)
	if !ok {
		return
	}
	e.totalEnergy += energy
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative departure of the specific orbital
// energy from its first observed value. Under pure two-body dynamics it
// measures integration error.
type EnergyDrift struct {
	name          string
	mu            float64
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(mu float64) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", mu: mu}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) OnStep(x dynamo.StateVector, t float64) {
	energy, ok := specificEnergy(x, e.mu)
	if !ok {
		return
	}

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

func specificEnergy(x dynamo.StateVector, mu float64) (float64, bool) {
	if len(x) < 6 {
		return 0, false
	}
	r := r3.Vec{X: x[0], Y: x[1], Z: x[2]}
	if r3.Norm(r) == 0 {
		return 0, false
	}
	return orbit.SpecificEnergy(r, r3.Vec{X: x[3], Y: x[4], Z: x[5]}, mu), true
}
