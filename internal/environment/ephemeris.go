package environment

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r3"
)

// AU is one astronomical unit in meters.
const AU = 1.495978707e11

// Ephemeris gives the position of a body relative to the central body.
//
// Positions are expressed on the mean equator and equinox of date, which is
// the inertial frame used throughout the propagation packages.
type Ephemeris interface {
	PositionAt(instant time.Time) (r3.Vec, error)
}

// Fixed is an ephemeris pinned to a constant position. The zero value is the origin.
type Fixed struct {
	Position r3.Vec
}

func (f Fixed) PositionAt(time.Time) (r3.Vec, error) {
	return f.Position, nil
}

// MeeusSun is the geocentric solar position from Meeus chapter 25.
type MeeusSun struct{}

func (MeeusSun) PositionAt(instant time.Time) (r3.Vec, error) {
	jde := julian.TimeToJD(instant.UTC())
	T := j2000Century(jde)
	λ, _ := solar.True(T)
	r := solar.Radius(T) * AU
	return eclipticToEquatorial(λ, 0, r, nutation.MeanObliquity(jde)), nil
}

// MeeusMoon is the geocentric lunar position from Meeus chapter 47.
type MeeusMoon struct{}

func (MeeusMoon) PositionAt(instant time.Time) (r3.Vec, error) {
	jde := julian.TimeToJD(instant.UTC())
	λ, β, Δ := moonposition.Position(jde)
	return eclipticToEquatorial(λ, β, Δ*1e3, nutation.MeanObliquity(jde)), nil
}

func j2000Century(jde float64) float64 {
	return (jde - 2451545.0) / 36525.0
}

func eclipticToEquatorial(λ, β unit.Angle, r float64, ε unit.Angle) r3.Vec {
	sλ, cλ := math.Sincos(λ.Rad())
	sβ, cβ := math.Sincos(β.Rad())
	sε, cε := math.Sincos(ε.Rad())
	return r3.Vec{
		X: r * cβ * cλ,
		Y: r * (cε*cβ*sλ - sε*sβ),
		Z: r * (sε*cβ*sλ + cε*sβ),
	}
}
