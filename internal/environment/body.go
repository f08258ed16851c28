package environment

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// GravityModel selects the fidelity of a body's gravitational field.
type GravityModel uint8

const (
	GravityUndefined GravityModel = iota
	GravitySpherical
	GravityJ2
)

func (m GravityModel) String() string {
	switch m {
	case GravitySpherical:
		return "Spherical"
	case GravityJ2:
		return "J2"
	default:
		return "Undefined"
	}
}

// ParseGravityModel returns the model named s (case sensitive, as printed by String).
func ParseGravityModel(s string) (GravityModel, error) {
	switch s {
	case "Spherical", "spherical":
		return GravitySpherical, nil
	case "J2", "j2":
		return GravityJ2, nil
	case "Undefined", "undefined":
		return GravityUndefined, nil
	}
	return GravityUndefined, fmt.Errorf("%w: unknown gravity model %q", dynamo.ErrInvalidConfiguration, s)
}

// Standard gravitational parameters (m^3/s^2) and equatorial radii (m).
const (
	EarthMu     = 3.986004418e14
	EarthRadius = 6378137.0
	EarthJ2     = 1.0826266835531513e-3

	MoonMu     = 4.9048695e12
	MoonRadius = 1737400.0

	SunMu     = 1.32712440018e20
	SunRadius = 6.955e8
)

// CelestialBody is a read-only handle shared by every contributor that models
// it. Contributors keep the pointer and never copy the body.
type CelestialBody struct {
	Name      string
	Mu        float64 // gravitational parameter, m^3/s^2
	Radius    float64 // equatorial radius, m
	J2        float64
	Model     GravityModel
	Ephemeris Ephemeris
}

// IsDefined reports whether the gravitational model can be evaluated.
func (c *CelestialBody) IsDefined() bool {
	return c != nil && c.Model != GravityUndefined && c.Mu > 0
}

// PositionAt returns the body position relative to the central body, in meters.
func (c *CelestialBody) PositionAt(instant time.Time) (r3.Vec, error) {
	if c.Ephemeris == nil {
		return r3.Vec{}, fmt.Errorf("%w: {Ephemeris} of %s is undefined", dynamo.ErrUndefinedModel, c.Name)
	}
	return c.Ephemeris.PositionAt(instant)
}

// Is reports whether other refers to the same physical body.
func (c *CelestialBody) Is(other *CelestialBody) bool {
	if c == nil || other == nil {
		return false
	}
	return c == other || c.Name == other.Name
}

func (c *CelestialBody) String() string {
	return fmt.Sprintf("%s (mu=%.9e m^3/s^2, model=%s)", c.Name, c.Mu, c.Model)
}

// NewEarth returns the Earth as an origin body with the given gravity model.
func NewEarth(model GravityModel) *CelestialBody {
	return &CelestialBody{
		Name:      "Earth",
		Mu:        EarthMu,
		Radius:    EarthRadius,
		J2:        EarthJ2,
		Model:     model,
		Ephemeris: Fixed{},
	}
}

// NewMoon returns a spherical Moon with an analytical geocentric ephemeris.
func NewMoon() *CelestialBody {
	return &CelestialBody{
		Name:      "Moon",
		Mu:        MoonMu,
		Radius:    MoonRadius,
		Model:     GravitySpherical,
		Ephemeris: MeeusMoon{},
	}
}

// NewSun returns a spherical Sun with an analytical geocentric ephemeris.
func NewSun() *CelestialBody {
	return &CelestialBody{
		Name:      "Sun",
		Mu:        SunMu,
		Radius:    SunRadius,
		Model:     GravitySpherical,
		Ephemeris: MeeusSun{},
	}
}

// BodyFromName builds one of the known bodies.
func BodyFromName(name string) (*CelestialBody, error) {
	switch name {
	case "Earth", "earth":
		return NewEarth(GravitySpherical), nil
	case "Moon", "moon":
		return NewMoon(), nil
	case "Sun", "sun":
		return NewSun(), nil
	}
	return nil, fmt.Errorf("%w: undefined body %q", dynamo.ErrInvalidConfiguration, name)
}
