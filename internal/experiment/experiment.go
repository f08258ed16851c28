// Package experiment turns a scenario configuration into a ready-to-run
// propagation and collects what it observed.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/orbitprop/internal/config"
	"github.com/san-kum/orbitprop/internal/dynamics"
	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/environment"
	"github.com/san-kum/orbitprop/internal/eventcondition"
	"github.com/san-kum/orbitprop/internal/propagator"
	"github.com/san-kum/orbitprop/internal/sequence"
	"github.com/san-kum/orbitprop/internal/trajectory"
)

// Result summarizes one run of an experiment.
type Result struct {
	Name               string
	Initial            trajectory.State
	Final              trajectory.State
	Condition          string
	ConditionSatisfied bool
	Steps              int
	Evaluations        int
	Segments           []sequence.SegmentSolution
	Samples            []Sample
	Metrics            map[string]float64
	Elapsed            time.Duration
}

type Experiment struct {
	cfg       *config.Config
	logger    *slog.Logger
	recorder  propagator.Recorder
	observers []dynamo.Observer

	env        *environment.Environment
	dynamics   *dynamics.SatelliteDynamics
	propagator *propagator.Propagator
	condition  eventcondition.Condition
	sequence   *sequence.Sequence
	metrics    []dynamo.Metric
	trace      *Trace
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithRecorder(r propagator.Recorder) Option {
	return func(e *Experiment) { e.recorder = r }
}

// WithObserver adds o to the experiment's own trace and metrics observers.
func WithObserver(o dynamo.Observer) Option {
	return func(e *Experiment) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// New validates cfg and builds the environment, the initial state, the force
// model and the event condition or sequence it describes.
func New(cfg *config.Config, registry *Registry, opts ...Option) (*Experiment, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil scenario", dynamo.ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = NewRegistry()
	}

	e := &Experiment{
		cfg:    cfg.Clone(),
		logger: slog.New(slog.DiscardHandler),
		trace:  NewTrace(),
	}
	for _, opt := range opts {
		opt(e)
	}

	env, err := registry.Environment(e.cfg)
	if err != nil {
		return nil, err
	}
	e.env = env
	earth := env.CentralBody()

	initial, err := initialState(e.cfg, earth)
	if err != nil {
		return nil, err
	}

	sd, err := dynamics.NewSatelliteDynamics(env, e.cfg.Satellite, initial)
	if err != nil {
		return nil, err
	}
	e.dynamics = sd

	thirdBodies, err := registry.ThirdBodies(env)
	if err != nil {
		return nil, err
	}
	contributors := append(sd.Contributors(), thirdBodies...)

	e.metrics = registry.DefaultMetrics(earth)
	popts := []propagator.Option{
		propagator.WithLogger(e.logger),
		propagator.WithRecorder(e.recorder),
		propagator.WithObserver(e.trace),
	}
	for _, m := range e.metrics {
		popts = append(popts, propagator.WithObserver(m))
	}
	for _, o := range e.observers {
		popts = append(popts, propagator.WithObserver(o))
	}
	e.propagator, err = propagator.New(contributors, e.cfg.Solver, popts...)
	if err != nil {
		return nil, err
	}

	if e.cfg.Condition != nil {
		e.condition, err = registry.Condition(*e.cfg.Condition, earth.Mu)
		if err != nil {
			return nil, err
		}
	}
	if e.cfg.Sequence != nil {
		e.sequence, err = buildSequence(e.cfg.Sequence, registry, earth.Mu, e.propagator, e.logger)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

func initialState(cfg *config.Config, earth *environment.CelestialBody) (trajectory.State, error) {
	b := trajectory.NewBuilder(cfg.Frame)
	switch {
	case len(cfg.InitState.Cartesian) > 0:
		return b.Build(cfg.Epoch, dynamo.StateVector(cfg.InitState.Cartesian))
	case cfg.InitState.Elements != nil:
		return b.FromElements(cfg.Epoch, cfg.InitState.Elements.Orbit(), earth.Mu)
	default:
		return b.FromTLE(cfg.InitState.TLE[0], cfg.InitState.TLE[1], cfg.Epoch)
	}
}

func buildSequence(sc *config.SequenceConfig, registry *Registry, mu float64, p *propagator.Propagator, logger *slog.Logger) (*sequence.Sequence, error) {
	segments := make([]*sequence.Segment, 0, len(sc.Segments))
	for _, s := range sc.Segments {
		cond, err := registry.Condition(s.Condition, mu)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", s.Name, err)
		}
		seg, err := sequence.NewCoastSegment(s.Name, cond, p)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	maxDuration := time.Duration(math.Round(sc.MaxDuration * float64(time.Second)))
	return sequence.New(segments, sc.Repetitions, maxDuration, logger)
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) Environment() *environment.Environment { return e.env }

func (e *Experiment) InitialState() trajectory.State { return e.dynamics.State() }

func (e *Experiment) Propagator() *propagator.Propagator { return e.propagator }

// Condition is nil unless the scenario defines one.
func (e *Experiment) Condition() eventcondition.Condition { return e.condition }

// Job describes the experiment's propagation for propagator.Batch. Trace and
// metrics observers are shared with Run, so an experiment's job must not run
// concurrently with itself.
func (e *Experiment) Job() propagator.Job {
	return propagator.Job{
		Name:       e.cfg.Name,
		Propagator: e.propagator,
		State:      e.InitialState(),
		Instant:    e.cfg.EndInstant(),
		Condition:  e.condition,
	}
}

// Run propagates the scenario. A sequence that stops at its maximum duration
// returns the partial result together with sequence.ErrMaximumDuration.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	e.Reset()
	initial := e.InitialState()
	res := &Result{Name: e.cfg.Name, Initial: initial}

	start := time.Now()
	e.logger.Info("experiment started",
		"name", e.cfg.Name,
		"stepper", e.cfg.Solver.Stepper,
		"state", initial)

	var runErr error
	switch {
	case e.sequence != nil:
		sol, err := e.sequence.Solve(ctx, initial)
		res.Segments = sol.Segments
		res.Final = sol.FinalState()
		for _, s := range sol.Segments {
			res.Steps += s.Steps
			res.Evaluations += s.Evaluations
		}
		if len(sol.Segments) > 0 {
			last := sol.Segments[len(sol.Segments)-1]
			res.Condition, res.ConditionSatisfied = last.Name, last.ConditionSatisfied
		}
		runErr = err
	default:
		var pr propagator.Result
		var err error
		if e.condition != nil {
			pr, err = e.propagator.CalculateStateToCondition(ctx, initial, e.cfg.EndInstant(), e.condition)
		} else {
			pr, err = e.propagator.Propagate(ctx, initial, e.cfg.EndInstant())
		}
		res.Final = pr.State
		res.Condition, res.ConditionSatisfied = pr.Condition, pr.ConditionSatisfied
		res.Steps, res.Evaluations = pr.Steps, pr.Evaluations
		runErr = err
	}

	res.Elapsed = time.Since(start)
	res.Samples = e.trace.Samples(e.cfg.Samples)
	res.Metrics = make(map[string]float64, len(e.metrics))
	for _, m := range e.metrics {
		res.Metrics[m.Name()] = m.Value()
	}

	if runErr != nil {
		if errors.Is(runErr, sequence.ErrMaximumDuration) && res.Final.IsDefined() {
			return res, runErr
		}
		e.logger.Error("experiment failed", "name", e.cfg.Name, "error", runErr)
		return nil, runErr
	}
	e.logger.Info("experiment finished",
		"name", e.cfg.Name,
		"steps", res.Steps,
		"condition", res.Condition,
		"elapsed", res.Elapsed)
	return res, nil
}

// Reset clears the trace and the metrics.
func (e *Experiment) Reset() {
	e.trace.Reset()
	for _, m := range e.metrics {
		m.Reset()
	}
}
