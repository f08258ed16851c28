package dynamics

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/environment"
)

// Option customizes a gravity contributor.
type Option func(*options)

type options struct {
	name    string
	central *environment.CelestialBody
}

// WithName overrides the default contributor name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithCentralBody sets the origin of the state for third-body terms. The
// default is the Earth.
func WithCentralBody(body *environment.CelestialBody) Option {
	return func(o *options) { o.central = body }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CentralBodyGravity is the point-mass attraction of the body at the origin,
// with an optional J2 oblateness term.
type CentralBodyGravity struct {
	name string
	body *environment.CelestialBody
}

func NewCentralBodyGravity(body *environment.CelestialBody, opts ...Option) (*CentralBodyGravity, error) {
	if !body.IsDefined() {
		return nil, fmt.Errorf("%w: {Gravitational Model} is undefined", dynamo.ErrUndefinedModel)
	}
	o := applyOptions(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("Central Body Gravity [%s]", body.Name)
	}
	return &CentralBodyGravity{name: o.name, body: body}, nil
}

func (g *CentralBodyGravity) Name() string { return g.name }

func (g *CentralBodyGravity) Body() *environment.CelestialBody { return g.body }

func (g *CentralBodyGravity) Contribution(x dynamo.StateVector, _ time.Time) (dynamo.StateVector, error) {
	if err := requireCartesian(x); err != nil {
		return nil, err
	}
	r := r3.Vec{X: x[0], Y: x[1], Z: x[2]}
	rNorm := r3.Norm(r)
	if rNorm == 0 {
		return nil, fmt.Errorf("%w: position at the center of %s", dynamo.ErrNumericalDivergence, g.body.Name)
	}

	a := r3.Scale(-g.body.Mu/(rNorm*rNorm*rNorm), r)
	if g.body.Model == environment.GravityJ2 {
		a = r3.Add(a, j2Acceleration(r, rNorm, g.body))
	}

	dx := make(dynamo.StateVector, len(x))
	dx[3], dx[4], dx[5] = a.X, a.Y, a.Z
	return dx, nil
}

func j2Acceleration(r r3.Vec, rNorm float64, body *environment.CelestialBody) r3.Vec {
	z2 := (r.Z * r.Z) / (rNorm * rNorm)
	k := -1.5 * body.J2 * body.Mu * body.Radius * body.Radius / (rNorm * rNorm * rNorm * rNorm * rNorm)
	return r3.Vec{
		X: k * r.X * (1 - 5*z2),
		Y: k * r.Y * (1 - 5*z2),
		Z: k * r.Z * (3 - 5*z2),
	}
}

// ThirdBodyGravity is the differential attraction of a body that is not the
// origin of the state: the pull on the satellite minus the pull on the
// central body.
type ThirdBodyGravity struct {
	name    string
	body    *environment.CelestialBody
	central *environment.CelestialBody
}

func NewThirdBodyGravity(body *environment.CelestialBody, opts ...Option) (*ThirdBodyGravity, error) {
	if !body.IsDefined() {
		return nil, fmt.Errorf("%w: {Gravitational Model} is undefined", dynamo.ErrUndefinedModel)
	}
	o := applyOptions(opts)
	if o.central == nil {
		o.central = environment.NewEarth(environment.GravitySpherical)
	}
	if body.Is(o.central) {
		return nil, fmt.Errorf("%w: cannot calculate third body acceleration for the %s yet", dynamo.ErrInvalidConfiguration, body.Name)
	}
	for _, c := range []*environment.CelestialBody{body, o.central} {
		if c.Ephemeris == nil {
			return nil, fmt.Errorf("%w: {Ephemeris} of %s is undefined", dynamo.ErrUndefinedModel, c.Name)
		}
	}
	if o.name == "" {
		o.name = fmt.Sprintf("Third Body Gravity [%s]", body.Name)
	}
	return &ThirdBodyGravity{name: o.name, body: body, central: o.central}, nil
}

func (g *ThirdBodyGravity) Name() string { return g.name }

func (g *ThirdBodyGravity) Body() *environment.CelestialBody { return g.body }

func (g *ThirdBodyGravity) Contribution(x dynamo.StateVector, instant time.Time) (dynamo.StateVector, error) {
	if err := requireCartesian(x); err != nil {
		return nil, err
	}
	bodyPos, err := g.body.PositionAt(instant)
	if err != nil {
		return nil, err
	}
	centralPos, err := g.central.PositionAt(instant)
	if err != nil {
		return nil, err
	}

	s := r3.Sub(bodyPos, centralPos)
	d := r3.Sub(s, r3.Vec{X: x[0], Y: x[1], Z: x[2]})
	dNorm, sNorm := r3.Norm(d), r3.Norm(s)
	if dNorm == 0 || sNorm == 0 {
		return nil, fmt.Errorf("%w: satellite coincides with %s", dynamo.ErrNumericalDivergence, g.body.Name)
	}

	a := r3.Scale(g.body.Mu, r3.Sub(
		r3.Scale(1/(dNorm*dNorm*dNorm), d),
		r3.Scale(1/(sNorm*sNorm*sNorm), s),
	))

	dx := make(dynamo.StateVector, len(x))
	dx[3], dx[4], dx[5] = a.X, a.Y, a.Z
	return dx, nil
}
