package experiment

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/san-kum/orbitprop/internal/config"
	"github.com/san-kum/orbitprop/internal/dynamics"
	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/environment"
	"github.com/san-kum/orbitprop/internal/eventcondition"
	"github.com/san-kum/orbitprop/internal/integrators"
	"github.com/san-kum/orbitprop/internal/metrics"
	"github.com/san-kum/orbitprop/internal/orbit"
)

// Registry resolves the names used in scenario files.
type Registry struct {
	bodies map[string]func(environment.GravityModel) *environment.CelestialBody
}

func NewRegistry() *Registry {
	r := &Registry{
		bodies: make(map[string]func(environment.GravityModel) *environment.CelestialBody),
	}

	r.bodies["earth"] = environment.NewEarth
	r.bodies["moon"] = func(environment.GravityModel) *environment.CelestialBody { return environment.NewMoon() }
	r.bodies["sun"] = func(environment.GravityModel) *environment.CelestialBody { return environment.NewSun() }

	return r
}

// Body builds a fresh body. The gravity model only applies to the Earth;
// perturbing bodies are always point masses.
func (r *Registry) Body(name string, model environment.GravityModel) (*environment.CelestialBody, error) {
	fn, ok := r.bodies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown body: %s", dynamo.ErrInvalidConfiguration, name)
	}
	return fn(model), nil
}

func (r *Registry) ListBodies() []string {
	names := make([]string, 0, len(r.bodies))
	for name := range r.bodies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) ListSteppers() []string {
	return integrators.Names()
}

// Environment builds an Earth-centered environment holding the scenario's
// perturbing bodies.
func (r *Registry) Environment(cfg *config.Config) (*environment.Environment, error) {
	model, err := environment.ParseGravityModel(cfg.Gravity)
	if err != nil {
		return nil, err
	}
	earth, err := r.Body("earth", model)
	if err != nil {
		return nil, err
	}
	bodies := make([]*environment.CelestialBody, 0, len(cfg.Bodies))
	for _, name := range cfg.Bodies {
		b, err := r.Body(name, environment.GravitySpherical)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, b)
	}
	return environment.New(cfg.Epoch, earth, bodies...)
}

// ThirdBodies returns one ThirdBodyGravity per non-central body of env,
// sharing env's bodies.
func (r *Registry) ThirdBodies(env *environment.Environment) ([]dynamics.Contributor, error) {
	var out []dynamics.Contributor
	for _, b := range env.Bodies() {
		g, err := dynamics.NewThirdBodyGravity(b, dynamics.WithCentralBody(env.CentralBody()))
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// Condition builds an event condition. mu is the central body's
// gravitational parameter, used by element conditions.
func (r *Registry) Condition(cc config.ConditionConfig, mu float64) (eventcondition.Condition, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	if strings.EqualFold(cc.Type, config.ConditionAll) {
		subs := make([]eventcondition.Condition, 0, len(cc.All))
		for _, sub := range cc.All {
			c, err := r.Condition(sub, mu)
			if err != nil {
				return nil, err
			}
			subs = append(subs, c)
		}
		return eventcondition.NewConjunctive(subs...)
	}

	criteria, err := eventcondition.ParseCriteria(cc.Criteria)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cc.Type) {
	case config.ConditionDuration:
		return eventcondition.NewDurationCondition(cc.Name, criteria, cc.Target)
	case config.ConditionCoordinate:
		name := cc.Name
		if name == "" {
			name = fmt.Sprintf("x[%d] %s %g", cc.Index, criteria, cc.Target)
		}
		return eventcondition.NewCoordinateCondition(name, criteria, cc.Index, cc.Target)
	default:
		element, err := orbit.ParseElement(cc.Element)
		if err != nil {
			return nil, err
		}
		target := cc.Target
		if isAngular(element) {
			target *= math.Pi / 180
		}
		name := cc.Name
		if name == "" {
			name = fmt.Sprintf("%s %s %g", element, criteria, cc.Target)
		}
		return eventcondition.NewCOECondition(name, criteria, element, target, mu)
	}
}

func isAngular(e orbit.Element) bool {
	return e != orbit.SemiMajorAxis && e != orbit.Eccentricity
}

// DefaultMetrics returns fresh metrics for a propagation about body.
func (r *Registry) DefaultMetrics(body *environment.CelestialBody) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewEnergy(body.Mu),
		metrics.NewEnergyDrift(body.Mu),
		metrics.NewAltitude(body.Radius, config.DefaultAltitudeWarn),
	}
}
