// Package solver integrates dynamo.Equations between two offsets, optionally
// stopping where an event condition is first satisfied.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/eventcondition"
	"github.com/san-kum/orbitprop/internal/integrators"
)

// ErrStepLimit is returned when a run needs more than Config.MaxSteps steps.
var ErrStepLimit = fmt.Errorf("%w: step limit reached", dynamo.ErrInvalidConfiguration)

// Solution is the terminal state of a run. ConditionSatisfied separates
// "event fired" from "target reached".
type Solution struct {
	State              dynamo.StateVector
	Time               float64
	Condition          string
	ConditionSatisfied bool

	Steps       int
	Rejected    int
	Evaluations int
}

// Solver owns its stepper and is not safe for concurrent use.
type Solver struct {
	cfg       Config
	stepper   dynamo.Stepper
	observers []dynamo.Observer
	logger    *slog.Logger
}

type Option func(*Solver)

func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithObserver(o dynamo.Observer) Option {
	return func(s *Solver) { s.AddObserver(o) }
}

func New(cfg Config, opts ...Option) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stepper, _ := integrators.New(cfg.Stepper)

	s := &Solver{
		cfg:     cfg,
		stepper: stepper,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Solver) Config() Config { return s.cfg }

// AddObserver registers o for every accepted sub-step, the initial and final
// samples included.
func (s *Solver) AddObserver(o dynamo.Observer) {
	if o != nil {
		s.observers = append(s.observers, o)
	}
}

// IntegrateTime advances x0 from t0 to t1. t1 < t0 integrates backward.
func (s *Solver) IntegrateTime(ctx context.Context, x0 dynamo.StateVector, t0, t1 float64, f dynamo.Equations) (Solution, error) {
	return s.run(ctx, x0, t0, t1, f, nil)
}

// IntegrateTimeToConditions advances x0 toward t1 and stops at the first
// instant where one of the conditions is satisfied. Conditions are checked in
// order after every accepted sub-step; the first satisfied one is localized.
func (s *Solver) IntegrateTimeToConditions(ctx context.Context, x0 dynamo.StateVector, t0, t1 float64, f dynamo.Equations, conditions ...eventcondition.Condition) (Solution, error) {
	for i, c := range conditions {
		if c == nil {
			return Solution{}, fmt.Errorf("%w: condition %d is nil", dynamo.ErrInvalidConfiguration, i)
		}
	}
	return s.run(ctx, x0, t0, t1, f, conditions)
}

type runState struct {
	sol Solution
	f   dynamo.Equations
}

func (s *Solver) newRun(f dynamo.Equations) *runState {
	r := &runState{}
	r.f = func(x, dxdt dynamo.StateVector, t float64) error {
		r.sol.Evaluations++
		if err := f(x, dxdt, t); err != nil {
			return err
		}
		if !dxdt.IsValid() {
			return fmt.Errorf("%w: non-finite derivative", dynamo.ErrNumericalDivergence)
		}
		return nil
	}
	return r
}

func (s *Solver) run(ctx context.Context, x0 dynamo.StateVector, t0, t1 float64, f dynamo.Equations, conditions []eventcondition.Condition) (Solution, error) {
	if f == nil {
		return Solution{}, fmt.Errorf("%w: no equations to integrate", dynamo.ErrInvalidConfiguration)
	}
	if len(x0) == 0 {
		return Solution{}, fmt.Errorf("%w: empty initial state", dynamo.ErrInvalidConfiguration)
	}
	if !x0.IsValid() || math.IsNaN(t0) || math.IsNaN(t1) || math.IsInf(t0, 0) || math.IsInf(t1, 0) {
		return Solution{}, &dynamo.SimulationError{Time: t0, State: x0.Clone(), Wrapped: dynamo.ErrNumericalDivergence}
	}

	r := s.newRun(f)
	x, t := x0.Clone(), t0
	s.notify(x, t)

	s.logger.Debug("integration started",
		"stepper", s.cfg.Stepper,
		"adaptive", s.cfg.Adaptive,
		"t0", t0,
		"t1", t1,
		"conditions", len(conditions))

	var stepper func(x dynamo.StateVector, t float64, step int) (dynamo.StateVector, float64, error)
	if s.cfg.Adaptive {
		stepper = s.adaptiveStepper(r, t0, t1)
	} else {
		stepper = s.fixedStepper(r, t0, t1)
	}

	for t != t1 {
		select {
		case <-ctx.Done():
			return r.sol, ctx.Err()
		default:
		}
		if r.sol.Steps >= s.cfg.MaxSteps {
			return r.sol, &dynamo.SimulationError{Step: r.sol.Steps, Time: t, State: x, Wrapped: ErrStepLimit}
		}

		xNew, tNew, err := stepper(x, t, r.sol.Steps)
		if err != nil {
			return r.sol, s.fail(r.sol.Steps, t, x, err)
		}
		if !xNew.IsValid() {
			return r.sol, s.fail(r.sol.Steps, tNew, xNew, fmt.Errorf("%w: non-finite state", dynamo.ErrNumericalDivergence))
		}
		r.sol.Steps++

		for _, c := range conditions {
			if !c.IsSatisfied(xNew, tNew, x, t) {
				continue
			}
			xe, te, err := s.bisect(r, c, x, t, xNew, tNew)
			if err != nil {
				return r.sol, s.fail(r.sol.Steps, t, x, err)
			}
			s.notify(xe, te)
			r.sol.State, r.sol.Time = xe, te
			r.sol.Condition, r.sol.ConditionSatisfied = c.Name(), true
			s.logger.Debug("event condition satisfied",
				"condition", c.Name(),
				"t", te,
				"steps", r.sol.Steps,
				"evaluations", r.sol.Evaluations)
			return r.sol, nil
		}

		x, t = xNew, tNew
		s.notify(x, t)
	}

	r.sol.State, r.sol.Time = x, t
	s.logger.Debug("integration finished",
		"t", t,
		"steps", r.sol.Steps,
		"rejected", r.sol.Rejected,
		"evaluations", r.sol.Evaluations)
	return r.sol, nil
}

// fixedStepper takes n equal sub-steps, n = ceil(|t1-t0| / StepSize). Times
// are computed from the step index so the last sample lands on t1 exactly.
func (s *Solver) fixedStepper(r *runState, t0, t1 float64) func(dynamo.StateVector, float64, int) (dynamo.StateVector, float64, error) {
	span := t1 - t0
	n := int(math.Ceil(math.Abs(span)/s.cfg.StepSize - 1e-9))
	if n < 1 {
		n = 1
	}
	return func(x dynamo.StateVector, t float64, step int) (dynamo.StateVector, float64, error) {
		tNew := t1
		if step+1 < n {
			tNew = t0 + span*float64(step+1)/float64(n)
		}
		xNew, err := s.stepper.Step(r.f, x, t, tNew-t)
		return xNew, tNew, err
	}
}

func (s *Solver) adaptiveStepper(r *runState, t0, t1 float64) func(dynamo.StateVector, float64, int) (dynamo.StateVector, float64, error) {
	adaptive := s.stepper.(dynamo.AdaptiveStepper)
	dir := math.Copysign(1, t1-t0)
	h := s.clampStep(s.cfg.StepSize)

	return func(x dynamo.StateVector, t float64, _ int) (dynamo.StateVector, float64, error) {
		for {
			remaining := t1 - t
			dt := dir * h
			last := math.Abs(dt) >= math.Abs(remaining)
			if last {
				dt = remaining
			}

			xNew, ratio, next, err := adaptive.StepAdaptive(r.f, x, t, dt, s.cfg.Tolerance)
			if err != nil {
				return nil, 0, err
			}
			if ratio <= 1 {
				if !last {
					h = s.clampStep(math.Abs(next))
				}
				if last {
					return xNew, t1, nil
				}
				return xNew, t + dt, nil
			}

			r.sol.Rejected++
			if math.Abs(dt) <= s.cfg.MinStepSize {
				return nil, 0, fmt.Errorf("%w: step %g s at error ratio %.3g", dynamo.ErrStepTooSmall, math.Abs(dt), ratio)
			}
			h = math.Max(math.Abs(next), s.cfg.MinStepSize)
			if h >= math.Abs(dt) {
				h = math.Max(0.5*math.Abs(dt), s.cfg.MinStepSize)
			}
		}
	}
}

func (s *Solver) clampStep(h float64) float64 {
	return math.Min(math.Max(h, s.cfg.MinStepSize), s.cfg.MaxStepSize)
}

func (s *Solver) notify(x dynamo.StateVector, t float64) {
	for _, o := range s.observers {
		o.OnStep(x, t)
	}
}

func (s *Solver) fail(step int, t float64, x dynamo.StateVector, err error) error {
	if errors.Is(err, dynamo.ErrNumericalDivergence) {
		s.logger.Warn("integration diverged", "step", step, "t", t, "err", err)
	}
	return &dynamo.SimulationError{Step: step, Time: t, State: x.Clone(), Wrapped: err}
}
