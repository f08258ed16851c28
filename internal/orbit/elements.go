// Package orbit converts between cartesian states and classical orbital elements.
package orbit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

const (
	eccentricityEps = 5e-9
	angleEps        = 1e-11
)

// Elements holds the classical orbital elements. Angles are in radians, the
// semi-major axis in meters.
type Elements struct {
	SemiMajorAxis float64
	Eccentricity  float64
	Inclination   float64
	RAAN          float64
	AOP           float64
	TrueAnomaly   float64
}

// Element names a single classical element.
type Element uint8

const (
	SemiMajorAxis Element = iota + 1
	Eccentricity
	Inclination
	RAAN
	AOP
	TrueAnomaly
)

func (e Element) String() string {
	switch e {
	case SemiMajorAxis:
		return "SemiMajorAxis"
	case Eccentricity:
		return "Eccentricity"
	case Inclination:
		return "Inclination"
	case RAAN:
		return "RAAN"
	case AOP:
		return "AOP"
	case TrueAnomaly:
		return "TrueAnomaly"
	}
	return "Undefined"
}

// ParseElement is the inverse of Element.String.
func ParseElement(s string) (Element, error) {
	for e := SemiMajorAxis; e <= TrueAnomaly; e++ {
		if e.String() == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown orbital element %q", dynamo.ErrInvalidConfiguration, s)
}

// Value extracts the named element.
func (o Elements) Value(e Element) float64 {
	switch e {
	case SemiMajorAxis:
		return o.SemiMajorAxis
	case Eccentricity:
		return o.Eccentricity
	case Inclination:
		return o.Inclination
	case RAAN:
		return o.RAAN
	case AOP:
		return o.AOP
	case TrueAnomaly:
		return o.TrueAnomaly
	}
	return math.NaN()
}

// SemiParameter returns p = a(1-e^2).
func (o Elements) SemiParameter() float64 {
	return o.SemiMajorAxis * (1 - o.Eccentricity*o.Eccentricity)
}

// Period returns the orbital period in seconds for a closed orbit.
func (o Elements) Period(mu float64) float64 {
	return 2 * math.Pi * math.Sqrt(math.Pow(o.SemiMajorAxis, 3)/mu)
}

// SpecificEnergy returns v^2/2 - mu/r.
func SpecificEnergy(r, v r3.Vec, mu float64) float64 {
	return r3.Dot(v, v)/2 - mu/r3.Norm(r)
}

// ElementsFromCartesian computes the osculating elements of (r, v). Circular
// and equatorial orbits use the conventions of Vallado: the undefined angles
// are set to zero and the anomaly is measured from the next defined direction.
func ElementsFromCartesian(r, v r3.Vec, mu float64) (Elements, error) {
	rNorm := r3.Norm(r)
	if rNorm == 0 || mu <= 0 {
		return Elements{}, fmt.Errorf("%w: cannot compute elements for r=%v mu=%g", dynamo.ErrInvalidConfiguration, r, mu)
	}

	h := r3.Cross(r, v)
	hNorm := r3.Norm(h)
	n := r3.Cross(r3.Vec{Z: 1}, h)
	nNorm := r3.Norm(n)

	vNorm2 := r3.Dot(v, v)
	eVec := r3.Scale(1/mu, r3.Sub(r3.Scale(vNorm2-mu/rNorm, r), r3.Scale(r3.Dot(r, v), v)))
	e := r3.Norm(eVec)

	energy := vNorm2/2 - mu/rNorm
	var a float64
	if math.Abs(e-1) > eccentricityEps {
		a = -mu / (2 * energy)
	} else {
		a = math.Inf(1)
	}

	i := math.Acos(clamp(h.Z / hNorm))

	var raan, aop, nu float64
	equatorial := nNorm < angleEps*hNorm
	circular := e < eccentricityEps

	if !equatorial {
		raan = math.Acos(clamp(n.X / nNorm))
		if n.Y < 0 {
			raan = 2*math.Pi - raan
		}
	}

	switch {
	case !circular && !equatorial:
		aop = math.Acos(clamp(r3.Dot(n, eVec) / (nNorm * e)))
		if eVec.Z < 0 {
			aop = 2*math.Pi - aop
		}
		nu = trueAnomaly(r, v, eVec, rNorm, e)
	case !circular && equatorial:
		// Longitude of periapsis stands in for the argument of periapsis.
		aop = math.Atan2(eVec.Y, eVec.X)
		if h.Z < 0 {
			aop = -aop
		}
		aop = wrap(aop)
		nu = trueAnomaly(r, v, eVec, rNorm, e)
	case circular && !equatorial:
		// Argument of latitude.
		nu = math.Acos(clamp(r3.Dot(n, r) / (nNorm * rNorm)))
		if r.Z < 0 {
			nu = 2*math.Pi - nu
		}
	default:
		// True longitude.
		nu = math.Acos(clamp(r.X / rNorm))
		if r.Y < 0 {
			nu = 2*math.Pi - nu
		}
	}

	return Elements{
		SemiMajorAxis: a,
		Eccentricity:  e,
		Inclination:   i,
		RAAN:          raan,
		AOP:           aop,
		TrueAnomaly:   nu,
	}, nil
}

// CartesianFromElements returns the position and velocity for the elements.
func CartesianFromElements(o Elements, mu float64) (r, v r3.Vec, err error) {
	if mu <= 0 || o.Eccentricity < 0 {
		return r, v, fmt.Errorf("%w: invalid elements %+v", dynamo.ErrInvalidConfiguration, o)
	}
	p := o.SemiParameter()
	if p <= 0 {
		return r, v, fmt.Errorf("%w: non-positive semi-parameter %g", dynamo.ErrInvalidConfiguration, p)
	}

	sinNu, cosNu := math.Sincos(o.TrueAnomaly)
	denom := 1 + o.Eccentricity*cosNu
	rPQW := r3.Vec{X: p * cosNu / denom, Y: p * sinNu / denom}
	sqrtMuP := math.Sqrt(mu / p)
	vPQW := r3.Vec{X: -sqrtMuP * sinNu, Y: sqrtMuP * (o.Eccentricity + cosNu)}

	return pqwToInertial(o, rPQW), pqwToInertial(o, vPQW), nil
}

func pqwToInertial(o Elements, p r3.Vec) r3.Vec {
	sO, cO := math.Sincos(o.RAAN)
	sw, cw := math.Sincos(o.AOP)
	si, ci := math.Sincos(o.Inclination)

	return r3.Vec{
		X: (cO*cw-sO*sw*ci)*p.X + (-cO*sw-sO*cw*ci)*p.Y,
		Y: (sO*cw+cO*sw*ci)*p.X + (-sO*sw+cO*cw*ci)*p.Y,
		Z: (sw*si)*p.X + (cw*si)*p.Y,
	}
}

func trueAnomaly(r, v, eVec r3.Vec, rNorm, e float64) float64 {
	nu := math.Acos(clamp(r3.Dot(eVec, r) / (e * rNorm)))
	if r3.Dot(r, v) < 0 {
		nu = 2*math.Pi - nu
	}
	return nu
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

func wrap(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}
