// Package propagator moves trajectory states between instants using a list
// of dynamics contributors and a solver configuration.
package propagator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/san-kum/orbitprop/internal/dynamics"
	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/eventcondition"
	"github.com/san-kum/orbitprop/internal/solver"
	"github.com/san-kum/orbitprop/internal/trajectory"
)

// Recorder receives one call per finished run.
type Recorder interface {
	ObserveRun(outcome string, steps, evaluations int, elapsed time.Duration)
}

// Result is a propagated state and how the run ended.
type Result struct {
	State              trajectory.State
	Condition          string
	ConditionSatisfied bool
	Steps              int
	Evaluations        int
}

// Propagator is safe for concurrent use when its contributors are: every call
// builds its own solver.
type Propagator struct {
	contributors []dynamics.Contributor
	cfg          solver.Config
	logger       *slog.Logger
	recorder     Recorder
	observers    []dynamo.Observer
}

type Option func(*Propagator)

func WithLogger(l *slog.Logger) Option {
	return func(p *Propagator) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(p *Propagator) { p.recorder = r }
}

// WithObserver attaches o to every solver the propagator builds. Observers
// are called from whichever goroutine runs the propagation.
func WithObserver(o dynamo.Observer) Option {
	return func(p *Propagator) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

func New(contributors []dynamics.Contributor, cfg solver.Config, opts ...Option) (*Propagator, error) {
	if len(contributors) == 0 {
		return nil, fmt.Errorf("%w: propagator requires at least one contributor", dynamo.ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Propagator{
		contributors: slices.Clone(contributors),
		cfg:          cfg,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Propagator) Contributors() []dynamics.Contributor { return slices.Clone(p.contributors) }

func (p *Propagator) Config() solver.Config { return p.cfg }

// CalculateStateAt propagates state to instant, forward or backward.
func (p *Propagator) CalculateStateAt(ctx context.Context, state trajectory.State, instant time.Time) (trajectory.State, error) {
	res, err := p.propagate(ctx, state, instant, nil)
	if err != nil {
		return trajectory.State{}, err
	}
	return res.State, nil
}

// Propagate is CalculateStateAt with the run statistics.
func (p *Propagator) Propagate(ctx context.Context, state trajectory.State, instant time.Time) (Result, error) {
	return p.propagate(ctx, state, instant, nil)
}

// CalculateStateToCondition propagates toward instant and stops where cond
// is first satisfied.
func (p *Propagator) CalculateStateToCondition(ctx context.Context, state trajectory.State, instant time.Time, cond eventcondition.Condition) (Result, error) {
	if cond == nil {
		return Result{}, fmt.Errorf("%w: nil event condition", dynamo.ErrInvalidConfiguration)
	}
	return p.propagate(ctx, state, instant, cond)
}

// CalculateStatesAt returns one state per instant, in the order given.
// Instants must be sorted; those before the state's instant are reached by a
// single backward sweep and the rest by a single forward sweep.
func (p *Propagator) CalculateStatesAt(ctx context.Context, state trajectory.State, instants []time.Time) ([]trajectory.State, error) {
	if !slices.IsSortedFunc(instants, func(a, b time.Time) int { return a.Compare(b) }) {
		return nil, fmt.Errorf("%w: instants must be sorted", dynamo.ErrInvalidConfiguration)
	}

	out := make([]trajectory.State, len(instants))
	split, _ := slices.BinarySearchFunc(instants, state.Instant(), func(a, b time.Time) int { return a.Compare(b) })

	current := state
	for i := split - 1; i >= 0; i-- {
		next, err := p.CalculateStateAt(ctx, current, instants[i])
		if err != nil {
			return nil, err
		}
		out[i], current = next, next
	}

	current = state
	for i := split; i < len(instants); i++ {
		next, err := p.CalculateStateAt(ctx, current, instants[i])
		if err != nil {
			return nil, err
		}
		out[i], current = next, next
	}
	return out, nil
}

func (p *Propagator) propagate(ctx context.Context, state trajectory.State, instant time.Time, cond eventcondition.Condition) (Result, error) {
	if !state.IsDefined() {
		return Result{}, fmt.Errorf("%w: state is undefined", dynamo.ErrInvalidConfiguration)
	}
	if instant.IsZero() {
		return Result{}, fmt.Errorf("%w: target instant is undefined", dynamo.ErrInvalidConfiguration)
	}

	epoch := state.Instant()
	f, err := dynamics.DynamicalEquations(p.contributors, epoch)
	if err != nil {
		return Result{}, err
	}
	s, err := solver.New(p.cfg, solver.WithLogger(p.logger))
	if err != nil {
		return Result{}, err
	}
	for _, o := range p.observers {
		s.AddObserver(o)
	}

	start := time.Now()
	t1 := dynamics.Offset(epoch, instant)

	var sol solver.Solution
	if cond != nil {
		sol, err = s.IntegrateTimeToConditions(ctx, state.Coordinates(), 0, t1, f, cond)
	} else {
		sol, err = s.IntegrateTime(ctx, state.Coordinates(), 0, t1, f)
	}
	p.record(sol, err, time.Since(start))
	if err != nil {
		return Result{}, err
	}

	at := instant
	if sol.ConditionSatisfied {
		at = dynamics.InstantAt(epoch, sol.Time)
	}
	return Result{
		State:              state.WithCoordinates(at, sol.State),
		Condition:          sol.Condition,
		ConditionSatisfied: sol.ConditionSatisfied,
		Steps:              sol.Steps,
		Evaluations:        sol.Evaluations,
	}, nil
}

func (p *Propagator) record(sol solver.Solution, err error, elapsed time.Duration) {
	if p.recorder == nil {
		return
	}
	outcome := "target"
	switch {
	case err != nil:
		outcome = "error"
	case sol.ConditionSatisfied:
		outcome = "event"
	}
	p.recorder.ObserveRun(outcome, sol.Steps, sol.Evaluations, elapsed)
}
