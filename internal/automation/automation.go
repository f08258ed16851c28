// Package automation scripts batches of propagations: multi-step scenario
// files and step-size convergence sweeps.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/orbitprop/internal/config"
	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/experiment"
	"github.com/san-kum/orbitprop/internal/propagator"
)

// Scenario defines a scripted propagation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`

	dir string
}

// ScenarioStep is one propagation. It starts from a preset ("regime/name")
// or a scenario file and applies the non-zero overrides.
type ScenarioStep struct {
	Preset   string   `yaml:"preset,omitempty"`
	Config   string   `yaml:"config,omitempty"`
	Stepper  string   `yaml:"stepper,omitempty"`
	StepSize float64  `yaml:"step_size,omitempty"`
	Duration float64  `yaml:"duration,omitempty"`
	Bodies   []string `yaml:"bodies,omitempty"`
}

// LoadScenario loads a scenario from a YAML file. Config paths in the steps
// are relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dynamo.ErrInvalidConfiguration, path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", dynamo.ErrInvalidConfiguration, scenario.Name)
	}
	scenario.dir = filepath.Dir(path)

	return &scenario, nil
}

// Resolve builds the step's configuration.
func (s ScenarioStep) Resolve(dir string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Preset != "" && s.Config != "":
		return nil, fmt.Errorf("%w: step sets both preset and config", dynamo.ErrInvalidConfiguration)
	case s.Preset != "":
		regime, name, ok := strings.Cut(s.Preset, "/")
		if !ok {
			return nil, fmt.Errorf("%w: preset %q is not regime/name", dynamo.ErrInvalidConfiguration, s.Preset)
		}
		cfg = config.GetPreset(regime, name)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", dynamo.ErrInvalidConfiguration, s.Preset)
		}
	case s.Config != "":
		path := s.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		cfg = config.DefaultConfig()
	}

	if s.Stepper != "" {
		cfg.Solver.Stepper = s.Stepper
	}
	if s.StepSize != 0 {
		cfg.Solver.StepSize = s.StepSize
	}
	if s.Duration != 0 {
		cfg.Duration = s.Duration
	}
	if s.Bodies != nil {
		cfg.Bodies = append([]string(nil), s.Bodies...)
	}
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in a scenario
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *slog.Logger) ([]*experiment.Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	results := make([]*experiment.Result, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve(scenario.dir)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("running scenario step",
			"scenario", scenario.Name,
			"step", i+1,
			"of", len(scenario.Steps),
			"name", cfg.Name)

		exp, err := experiment.New(cfg, registry, experiment.WithLogger(logger))
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, result)
	}

	return results, nil
}

// StepSweep compares the final state of a fixed-step propagation across
// step sizes against a tight adaptive reference.
type StepSweep struct {
	Config   *config.Config
	Stepper  string
	MinStep  float64
	MaxStep  float64
	NumSteps int
	Workers  int
}

// SweepResult holds results from a step-size sweep
type SweepResult struct {
	StepSize      float64
	PositionError float64
	VelocityError float64
	Steps         int
	Evaluations   int
	Err           error
}

const referenceTolerance = 1e-12

// RunSweep runs every step size, plus the reference, as one batch. Step sizes
// are spaced geometrically from MinStep to MaxStep. Event conditions and
// sequences of the base configuration are ignored.
func RunSweep(ctx context.Context, sweep *StepSweep, registry *experiment.Registry, logger *slog.Logger) ([]SweepResult, error) {
	if sweep.Config == nil {
		return nil, fmt.Errorf("%w: sweep has no base configuration", dynamo.ErrInvalidConfiguration)
	}
	if sweep.NumSteps < 2 || sweep.MinStep <= 0 || sweep.MaxStep <= sweep.MinStep {
		return nil, fmt.Errorf("%w: sweep needs at least two step sizes in an increasing positive range", dynamo.ErrInvalidConfiguration)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	base := sweep.Config.Clone()
	base.Condition, base.Sequence = nil, nil

	ref := base.Clone()
	ref.Name = base.Name + "/reference"
	ref.Solver.Stepper = "rk45"
	ref.Solver.Adaptive = true
	ref.Solver.Tolerance = referenceTolerance
	ref.Solver.MaxStepSize = sweep.MinStep

	stepSizes := make([]float64, sweep.NumSteps)
	floats.LogSpan(stepSizes, sweep.MinStep, sweep.MaxStep)

	jobs := make([]propagator.Job, 0, len(stepSizes)+1)
	refExp, err := experiment.New(ref, registry)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	jobs = append(jobs, refExp.Job())

	for _, h := range stepSizes {
		cfg := base.Clone()
		cfg.Name = fmt.Sprintf("%s/h=%g", base.Name, h)
		cfg.Solver.StepSize = h
		cfg.Solver.Adaptive = false
		if sweep.Stepper != "" {
			cfg.Solver.Stepper = sweep.Stepper
		}
		exp, err := experiment.New(cfg, registry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Name, err)
		}
		jobs = append(jobs, exp.Job())
	}

	batch, err := propagator.Batch(ctx, jobs, sweep.Workers, logger)
	if batch[0].Err != nil {
		return nil, fmt.Errorf("reference: %w", batch[0].Err)
	}
	reference := batch[0].Result.State

	results := make([]SweepResult, len(stepSizes))
	for i, h := range stepSizes {
		r := batch[i+1]
		results[i] = SweepResult{StepSize: h, Err: r.Err}
		if r.Err != nil {
			continue
		}
		diff, derr := r.Result.State.Sub(reference)
		if derr != nil {
			results[i].Err = derr
			continue
		}
		x := diff.Coordinates()
		results[i].PositionError = math.Sqrt(x[0]*x[0] + x[1]*x[1] + x[2]*x[2])
		results[i].VelocityError = math.Sqrt(x[3]*x[3] + x[4]*x[4] + x[5]*x[5])
		results[i].Steps = r.Result.Steps
		results[i].Evaluations = r.Result.Evaluations

		logger.Debug("sweep point",
			"step_size", h,
			"position_error", results[i].PositionError,
			"evaluations", r.Result.Evaluations)
	}
	return results, err
}
