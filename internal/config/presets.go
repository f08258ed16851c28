package config

import (
	"slices"
	"time"

	"github.com/san-kum/orbitprop/internal/environment"
	"github.com/san-kum/orbitprop/internal/satellite"
	"github.com/san-kum/orbitprop/internal/solver"
	"github.com/san-kum/orbitprop/internal/trajectory"
)

const earthR = environment.EarthRadius

// Presets groups ready-made scenarios by orbit regime.
var Presets = map[string]map[string]*Config{
	"leo": {
		"circular": preset("leo/circular", 5400, ElementsConfig{SemiMajorAxis: earthR + 500e3}),
		"sso": preset("leo/sso", 6000, ElementsConfig{
			SemiMajorAxis: earthR + 700e3, Eccentricity: 0.001, Inclination: 98.19,
		}, withGravity("j2")),
		"iss": {
			Name: "leo/iss", Epoch: time.Date(2008, time.September, 20, 12, 25, 40, 0, time.UTC),
			Duration: 5560, Frame: trajectory.GCRF, Gravity: "j2", Samples: DefaultSamples,
			InitState: InitStateConfig{TLE: []string{
				"1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927",
				"2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537",
			}},
			Satellite: satellite.System{Mass: 420000, CrossSectionalArea: 1600, SurfaceArea: 4000, DragCoefficient: 2.2, ReflectivityCoefficient: 1.3},
			Solver:    solver.DefaultConfig(),
		},
		"perigee": preset("leo/perigee", 12000, ElementsConfig{
			SemiMajorAxis: earthR + 1000e3, Eccentricity: 0.05, Inclination: 28.5, TrueAnomaly: 90,
		}, withCondition(ConditionConfig{Name: "Perigee", Type: ConditionElement, Element: "TrueAnomaly", Criteria: "PositiveCrossing"})),
	},
	"geo": {
		"stationary": preset("geo/stationary", 86164, ElementsConfig{SemiMajorAxis: 42164e3},
			withBodies("Moon", "Sun"), withStep(60)),
		"gto": preset("geo/gto", 38000, ElementsConfig{
			SemiMajorAxis: 24396e3, Eccentricity: 0.7306, Inclination: 7,
		}, withBodies("Moon", "Sun"), withStep(30)),
	},
	"heo": {
		"molniya": preset("heo/molniya", 43082, ElementsConfig{
			SemiMajorAxis: 26600e3, Eccentricity: 0.74, Inclination: 63.4, AOP: 270,
		}, withGravity("j2"), withBodies("Moon", "Sun"), withStep(30)),
		"apogee-passes": preset("heo/apogee-passes", 0, ElementsConfig{
			SemiMajorAxis: 26600e3, Eccentricity: 0.74, Inclination: 63.4, AOP: 270,
		}, withStep(30), withSequence(SequenceConfig{
			Segments: []SegmentConfig{
				{Name: "To apogee", Condition: ConditionConfig{Type: ConditionElement, Element: "TrueAnomaly", Criteria: "AnyCrossing", Target: 180}},
				{Name: "To perigee", Condition: ConditionConfig{Type: ConditionElement, Element: "TrueAnomaly", Criteria: "AnyCrossing", Target: 0}},
			},
			Repetitions: 2,
			MaxDuration: 86400,
		})),
	},
}

type presetOption func(*Config)

func withGravity(model string) presetOption { return func(c *Config) { c.Gravity = model } }

func withBodies(names ...string) presetOption { return func(c *Config) { c.Bodies = names } }

func withStep(dt float64) presetOption { return func(c *Config) { c.Solver.StepSize = dt } }

func withCondition(cc ConditionConfig) presetOption { return func(c *Config) { c.Condition = &cc } }

func withSequence(sc SequenceConfig) presetOption { return func(c *Config) { c.Sequence = &sc } }

func preset(name string, duration float64, coe ElementsConfig, opts ...presetOption) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Duration = duration
	cfg.InitState = InitStateConfig{Elements: &coe}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(regime, name string) *Config {
	regimePresets, ok := Presets[regime]
	if !ok {
		return nil
	}
	cfg, ok := regimePresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the sorted preset names of a regime.
func ListPresets(regime string) []string {
	regimePresets, ok := Presets[regime]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(regimePresets))
	for name := range regimePresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Regimes returns the sorted preset groups.
func Regimes() []string {
	out := make([]string, 0, len(Presets))
	for r := range Presets {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}
