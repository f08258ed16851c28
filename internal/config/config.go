// Package config loads and validates propagation scenarios stored as YAML.
//
// A scenario names everything needed to rebuild a propagation: the epoch, the
// initial state, the force model, the solver settings and optionally an event
// condition or a segment sequence. Angles are in degrees, lengths in meters and
// durations in seconds.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/environment"
	"github.com/san-kum/orbitprop/internal/eventcondition"
	"github.com/san-kum/orbitprop/internal/orbit"
	"github.com/san-kum/orbitprop/internal/satellite"
	"github.com/san-kum/orbitprop/internal/solver"
	"github.com/san-kum/orbitprop/internal/trajectory"
)

const (
	DefaultDuration     = 5400.0
	DefaultGravity      = "spherical"
	DefaultAltitude     = 500e3
	DefaultSamples      = 200
	DefaultAltitudeWarn = 120e3
)

// J2000 is the default scenario epoch.
var J2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// Condition types understood by ConditionConfig.
const (
	ConditionDuration   = "duration"
	ConditionCoordinate = "coordinate"
	ConditionElement    = "element"
	ConditionAll        = "all"
)

type Config struct {
	Name      string           `yaml:"name"`
	Epoch     time.Time        `yaml:"epoch"`
	Duration  float64          `yaml:"duration"`
	Frame     string           `yaml:"frame"`
	Gravity   string           `yaml:"gravity"`
	Bodies    []string         `yaml:"bodies,omitempty"`
	Samples   int              `yaml:"samples"`
	InitState InitStateConfig  `yaml:"init_state"`
	Satellite satellite.System `yaml:"satellite"`
	Solver    solver.Config    `yaml:"solver"`
	Condition *ConditionConfig `yaml:"condition,omitempty"`
	Sequence  *SequenceConfig  `yaml:"sequence,omitempty"`
}

// InitStateConfig holds exactly one of the supported initial state forms.
type InitStateConfig struct {
	Cartesian []float64       `yaml:"cartesian,omitempty"`
	Elements  *ElementsConfig `yaml:"elements,omitempty"`
	TLE       []string        `yaml:"tle,omitempty"`
}

type ElementsConfig struct {
	SemiMajorAxis float64 `yaml:"semi_major_axis"`
	Eccentricity  float64 `yaml:"eccentricity"`
	Inclination   float64 `yaml:"inclination"`
	RAAN          float64 `yaml:"raan"`
	AOP           float64 `yaml:"aop"`
	TrueAnomaly   float64 `yaml:"true_anomaly"`
}

// Orbit converts to radians.
func (e ElementsConfig) Orbit() orbit.Elements {
	return orbit.Elements{
		SemiMajorAxis: e.SemiMajorAxis,
		Eccentricity:  e.Eccentricity,
		Inclination:   e.Inclination * math.Pi / 180,
		RAAN:          e.RAAN * math.Pi / 180,
		AOP:           e.AOP * math.Pi / 180,
		TrueAnomaly:   e.TrueAnomaly * math.Pi / 180,
	}
}

// ConditionConfig describes an event condition. Type "all" combines the
// nested conditions with a logical AND; targets of angular elements are in
// degrees.
type ConditionConfig struct {
	Name     string            `yaml:"name,omitempty"`
	Type     string            `yaml:"type"`
	Criteria string            `yaml:"criteria,omitempty"`
	Element  string            `yaml:"element,omitempty"`
	Index    int               `yaml:"index,omitempty"`
	Target   float64           `yaml:"target,omitempty"`
	All      []ConditionConfig `yaml:"all,omitempty"`
}

type SequenceConfig struct {
	Segments    []SegmentConfig `yaml:"segments"`
	Repetitions int             `yaml:"repetitions"`
	MaxDuration float64         `yaml:"max_duration"`
}

type SegmentConfig struct {
	Name      string          `yaml:"name"`
	Condition ConditionConfig `yaml:"condition"`
}

// DefaultConfig is a circular 500 km equatorial orbit propagated for 90
// minutes.
func DefaultConfig() *Config {
	return &Config{
		Name:     "default",
		Epoch:    J2000,
		Duration: DefaultDuration,
		Frame:    trajectory.GCRF,
		Gravity:  DefaultGravity,
		Samples:  DefaultSamples,
		InitState: InitStateConfig{
			Elements: &ElementsConfig{SemiMajorAxis: environment.EarthRadius + DefaultAltitude},
		},
		Satellite: satellite.Default(),
		Solver:    solver.DefaultConfig(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML scenario over DefaultConfig and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	// A document that sets cartesian or tle must not inherit the default elements.
	cfg.InitState = InitStateConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfiguration, err)
	}
	if cfg.InitState.isEmpty() {
		cfg.InitState = DefaultConfig().InitState
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML, the inverse of Parse.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be modified by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Bodies = append([]string(nil), c.Bodies...)
	out.InitState.Cartesian = append([]float64(nil), c.InitState.Cartesian...)
	out.InitState.TLE = append([]string(nil), c.InitState.TLE...)
	if c.InitState.Elements != nil {
		e := *c.InitState.Elements
		out.InitState.Elements = &e
	}
	if c.Condition != nil {
		cc := c.Condition.clone()
		out.Condition = &cc
	}
	if c.Sequence != nil {
		seq := *c.Sequence
		seq.Segments = make([]SegmentConfig, len(c.Sequence.Segments))
		for i, s := range c.Sequence.Segments {
			seq.Segments[i] = SegmentConfig{Name: s.Name, Condition: s.Condition.clone()}
		}
		out.Sequence = &seq
	}
	return &out
}

func (c ConditionConfig) clone() ConditionConfig {
	out := c
	if c.All != nil {
		out.All = make([]ConditionConfig, len(c.All))
		for i, sub := range c.All {
			out.All[i] = sub.clone()
		}
	}
	return out
}

// EndInstant is the epoch shifted by the scenario duration.
func (c *Config) EndInstant() time.Time {
	return c.Epoch.Add(time.Duration(math.Round(c.Duration * float64(time.Second))))
}

func (c *Config) Validate() error {
	if c.Epoch.IsZero() {
		return fmt.Errorf("%w: epoch is required", dynamo.ErrInvalidConfiguration)
	}
	if c.Frame == "" {
		return fmt.Errorf("%w: frame is required", dynamo.ErrInvalidConfiguration)
	}
	if math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("%w: duration must be finite", dynamo.ErrInvalidConfiguration)
	}
	if c.Duration == 0 && c.Sequence == nil {
		return fmt.Errorf("%w: duration must be non-zero", dynamo.ErrInvalidConfiguration)
	}
	if c.Samples < 0 {
		return fmt.Errorf("%w: samples must be non-negative", dynamo.ErrInvalidConfiguration)
	}
	model, err := environment.ParseGravityModel(c.Gravity)
	if err != nil {
		return err
	}
	if model == environment.GravityUndefined {
		return fmt.Errorf("%w: {Gravitational Model} is undefined", dynamo.ErrUndefinedModel)
	}
	for _, name := range c.Bodies {
		body, err := environment.BodyFromName(name)
		if err != nil {
			return err
		}
		if body.Name == "Earth" {
			return fmt.Errorf("%w: cannot calculate third body acceleration for the Earth yet", dynamo.ErrInvalidConfiguration)
		}
	}
	if err := c.InitState.Validate(); err != nil {
		return err
	}
	if err := c.Satellite.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if c.Condition != nil {
		if err := c.Condition.Validate(); err != nil {
			return fmt.Errorf("condition: %w", err)
		}
	}
	if c.Sequence != nil {
		if err := c.Sequence.Validate(); err != nil {
			return fmt.Errorf("sequence: %w", err)
		}
	}
	return nil
}

func (s InitStateConfig) isEmpty() bool {
	return len(s.Cartesian) == 0 && s.Elements == nil && len(s.TLE) == 0
}

func (s InitStateConfig) Validate() error {
	forms := 0
	if len(s.Cartesian) > 0 {
		forms++
		if len(s.Cartesian) != 6 {
			return fmt.Errorf("%w: cartesian state needs 6 coordinates, got %d", dynamo.ErrDimensionMismatch, len(s.Cartesian))
		}
		if !dynamo.StateVector(s.Cartesian).IsValid() {
			return fmt.Errorf("%w: cartesian state is not finite", dynamo.ErrInvalidConfiguration)
		}
	}
	if s.Elements != nil {
		forms++
		if s.Elements.SemiMajorAxis <= 0 {
			return fmt.Errorf("%w: semi-major axis must be positive", dynamo.ErrInvalidConfiguration)
		}
		if s.Elements.Eccentricity < 0 || s.Elements.Eccentricity >= 1 {
			return fmt.Errorf("%w: eccentricity %g is not elliptic", dynamo.ErrInvalidConfiguration, s.Elements.Eccentricity)
		}
	}
	if len(s.TLE) > 0 {
		forms++
		if len(s.TLE) != 2 {
			return fmt.Errorf("%w: tle needs two lines, got %d", dynamo.ErrInvalidConfiguration, len(s.TLE))
		}
	}
	if forms != 1 {
		return fmt.Errorf("%w: init_state needs exactly one of cartesian, elements or tle", dynamo.ErrInvalidConfiguration)
	}
	return nil
}

func (c ConditionConfig) Validate() error {
	switch strings.ToLower(c.Type) {
	case ConditionAll:
		if len(c.All) == 0 {
			return fmt.Errorf("%w: conjunctive condition is empty", dynamo.ErrInvalidConfiguration)
		}
		for i, sub := range c.All {
			if err := sub.Validate(); err != nil {
				return fmt.Errorf("all[%d]: %w", i, err)
			}
		}
		return nil
	case ConditionDuration:
	case ConditionCoordinate:
		if c.Index < 0 || c.Index > 5 {
			return fmt.Errorf("%w: coordinate index %d out of range", dynamo.ErrInvalidConfiguration, c.Index)
		}
	case ConditionElement:
		if _, err := orbit.ParseElement(c.Element); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown condition type %q", dynamo.ErrInvalidConfiguration, c.Type)
	}
	criteria, err := eventcondition.ParseCriteria(c.Criteria)
	if err != nil {
		return err
	}
	if criteria == eventcondition.Undefined {
		return fmt.Errorf("%w: criteria is undefined", dynamo.ErrInvalidConfiguration)
	}
	return nil
}

func (s SequenceConfig) Validate() error {
	if len(s.Segments) == 0 {
		return fmt.Errorf("%w: sequence has no segments", dynamo.ErrInvalidConfiguration)
	}
	if s.Repetitions < 1 {
		return fmt.Errorf("%w: repetitions must be at least 1", dynamo.ErrInvalidConfiguration)
	}
	if s.MaxDuration == 0 || math.IsNaN(s.MaxDuration) {
		return fmt.Errorf("%w: max duration must be non-zero", dynamo.ErrInvalidConfiguration)
	}
	for i, seg := range s.Segments {
		if seg.Name == "" {
			return fmt.Errorf("%w: segment %d has no name", dynamo.ErrInvalidConfiguration, i)
		}
		if err := seg.Condition.Validate(); err != nil {
			return fmt.Errorf("segment %s: %w", seg.Name, err)
		}
	}
	return nil
}
