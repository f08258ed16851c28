package solver

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/orbitprop/internal/dynamics"
	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/environment"
	"github.com/san-kum/orbitprop/internal/eventcondition"
)

func harmonic(x, dxdt dynamo.StateVector, t float64) error {
	dxdt[0] = x[1]
	dxdt[1] = -x[0]
	return nil
}

func fixedConfig(step float64) Config {
	cfg := DefaultConfig()
	cfg.StepSize = step
	cfg.RootTolerance = 1e-9
	return cfg
}

func newSolver(t *testing.T, cfg Config, opts ...Option) *Solver {
	t.Helper()
	s, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func zeroCrossing(t *testing.T, criteria eventcondition.Criteria) eventcondition.Condition {
	t.Helper()
	c, err := eventcondition.NewCoordinateCondition("x0 zero", criteria, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestIntegrateTime_Fixed(t *testing.T) {
	var times []float64
	s := newSolver(t, fixedConfig(0.3), WithObserver(dynamo.ObserverFunc(func(_ dynamo.StateVector, t float64) {
		times = append(times, t)
	})))

	sol, err := s.IntegrateTime(context.Background(), dynamo.StateVector{1, 0}, 0, 1, harmonic)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Steps != 4 {
		t.Errorf("steps = %d, want 4", sol.Steps)
	}
	if sol.Time != 1 {
		t.Errorf("time = %v, want exactly 1", sol.Time)
	}
	if sol.ConditionSatisfied || sol.Condition != "" {
		t.Error("no condition was supplied")
	}
	if sol.Evaluations != 16 {
		t.Errorf("evaluations = %d, want 16", sol.Evaluations)
	}
	if len(times) != 5 || times[0] != 0 || times[4] != 1 {
		t.Errorf("observed times %v", times)
	}
	if math.Abs(sol.State[0]-math.Cos(1)) > 1e-4 {
		t.Errorf("x = %.8f, want %.8f", sol.State[0], math.Cos(1))
	}
}

func TestIntegrateTime_DoesNotMutateInput(t *testing.T) {
	x0 := dynamo.StateVector{1, 0}
	s := newSolver(t, fixedConfig(0.1))
	if _, err := s.IntegrateTime(context.Background(), x0, 0, 1, harmonic); err != nil {
		t.Fatal(err)
	}
	if x0[0] != 1 || x0[1] != 0 {
		t.Errorf("input modified: %v", x0)
	}
}

func TestIntegrateTime_Adaptive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stepper = "rk45"
	cfg.Adaptive = true
	cfg.StepSize = 0.1
	cfg.Tolerance = 1e-10
	cfg.MaxStepSize = 1

	s := newSolver(t, cfg)
	sol, err := s.IntegrateTime(context.Background(), dynamo.StateVector{1, 0}, 0, 10, harmonic)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Time != 10 {
		t.Errorf("time = %v, want 10", sol.Time)
	}
	if math.Abs(sol.State[0]-math.Cos(10)) > 1e-6 {
		t.Errorf("x = %.9f, want %.9f", sol.State[0], math.Cos(10))
	}
}

func TestIntegrateTime_StepCollapse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stepper = "rk45"
	cfg.Adaptive = true
	cfg.StepSize = 0.5
	cfg.Tolerance = 1e-20
	cfg.MinStepSize = 1e-3
	cfg.MaxStepSize = 1

	s := newSolver(t, cfg)
	_, err := s.IntegrateTime(context.Background(), dynamo.StateVector{1, 0}, 0, 10, harmonic)
	if !errors.Is(err, dynamo.ErrStepTooSmall) {
		t.Fatalf("expected ErrStepTooSmall, got %v", err)
	}
	if !errors.Is(err, dynamo.ErrNumericalDivergence) {
		t.Error("step collapse should be a divergence")
	}
}

func TestIntegrateTime_Divergence(t *testing.T) {
	blowUp := func(x, dxdt dynamo.StateVector, t float64) error {
		dxdt[0] = x[1]
		dxdt[1] = -x[0]
		if t > 0.5 {
			dxdt[1] = math.Inf(1)
		}
		return nil
	}

	s := newSolver(t, fixedConfig(0.1))
	_, err := s.IntegrateTime(context.Background(), dynamo.StateVector{1, 0}, 0, 1, blowUp)
	if !errors.Is(err, dynamo.ErrNumericalDivergence) {
		t.Fatalf("expected ErrNumericalDivergence, got %v", err)
	}
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected *SimulationError, got %T", err)
	}
	if simErr.Time > 0.5+1e-12 || simErr.Step < 4 {
		t.Errorf("failure reported at step %d t=%v", simErr.Step, simErr.Time)
	}
}

func TestIntegrateTime_EquationError(t *testing.T) {
	boom := errors.New("ephemeris unavailable")
	failing := func(x, dxdt dynamo.StateVector, t float64) error { return boom }

	s := newSolver(t, fixedConfig(0.1))
	if _, err := s.IntegrateTime(context.Background(), dynamo.StateVector{1, 0}, 0, 1, failing); !errors.Is(err, boom) {
		t.Errorf("expected wrapped equation error, got %v", err)
	}
}

func TestIntegrateTime_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSolver(t, fixedConfig(0.1))
	if _, err := s.IntegrateTime(ctx, dynamo.StateVector{1, 0}, 0, 1, harmonic); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIntegrateTime_StepLimit(t *testing.T) {
	cfg := fixedConfig(0.1)
	cfg.MaxSteps = 3
	s := newSolver(t, cfg)
	if _, err := s.IntegrateTime(context.Background(), dynamo.StateVector{1, 0}, 0, 1, harmonic); !errors.Is(err, ErrStepLimit) {
		t.Errorf("expected ErrStepLimit, got %v", err)
	}
}

func TestIntegrateTime_InvalidInput(t *testing.T) {
	s := newSolver(t, fixedConfig(0.1))
	ctx := context.Background()

	if _, err := s.IntegrateTime(ctx, nil, 0, 1, harmonic); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("empty state: %v", err)
	}
	if _, err := s.IntegrateTime(ctx, dynamo.StateVector{1, 0}, 0, 1, nil); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("nil equations: %v", err)
	}
	if _, err := s.IntegrateTime(ctx, dynamo.StateVector{math.NaN(), 0}, 0, 1, harmonic); !errors.Is(err, dynamo.ErrNumericalDivergence) {
		t.Errorf("NaN state: %v", err)
	}

	sol, err := s.IntegrateTime(ctx, dynamo.StateVector{1, 0}, 2, 2, harmonic)
	if err != nil || sol.Steps != 0 || sol.Time != 2 {
		t.Errorf("zero span: sol=%+v err=%v", sol, err)
	}
}

func TestIntegrateTimeToConditions_Localizes(t *testing.T) {
	tests := []struct {
		name     string
		t1       float64
		criteria eventcondition.Criteria
		want     float64
	}{
		{"forward", 10, eventcondition.NegativeCrossing, math.Pi / 2},
		{"backward", -10, eventcondition.NegativeCrossing, -math.Pi / 2},
		{"any crossing", 10, eventcondition.AnyCrossing, math.Pi / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSolver(t, fixedConfig(0.1))
			cond := zeroCrossing(t, tt.criteria)

			sol, err := s.IntegrateTimeToConditions(context.Background(), dynamo.StateVector{1, 0}, 0, tt.t1, harmonic, cond)
			if err != nil {
				t.Fatal(err)
			}
			if !sol.ConditionSatisfied || sol.Condition != "x0 zero" {
				t.Fatalf("condition not reported: %+v", sol)
			}
			// RK4 lags in phase by about h^5/120 per step.
			if math.Abs(sol.Time-tt.want) > 1e-5 {
				t.Errorf("event at %.9f, want %.9f", sol.Time, tt.want)
			}

			// The crossing lies between the samples at 1.5 and 1.6 s.
			lo, hi := 1.5, 1.6
			if tt.t1 < 0 {
				lo, hi = -1.6, -1.5
			}
			if sol.Time <= lo || sol.Time >= hi {
				t.Errorf("event at %v outside bracket (%v, %v)", sol.Time, lo, hi)
			}
			if sol.State[0] > 0 || sol.State[0] < -1e-6 {
				t.Errorf("x0 at event = %v, want just past zero", sol.State[0])
			}
		})
	}
}

func TestIntegrateTimeToConditions_Adaptive(t *testing.T) {
	tests := []struct {
		name string
		t1   float64
		want float64
	}{
		{"forward", 10, math.Pi / 2},
		{"backward", -10, -math.Pi / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Stepper = "rk45"
			cfg.Adaptive = true
			cfg.StepSize = 0.1
			cfg.Tolerance = 1e-10
			cfg.MaxStepSize = 1
			cfg.RootTolerance = 1e-9

			type sample struct {
				x dynamo.StateVector
				t float64
			}
			var seen []sample
			s := newSolver(t, cfg, WithObserver(dynamo.ObserverFunc(func(x dynamo.StateVector, t float64) {
				seen = append(seen, sample{x.Clone(), t})
			})))
			cond := zeroCrossing(t, eventcondition.NegativeCrossing)

			sol, err := s.IntegrateTimeToConditions(context.Background(), dynamo.StateVector{1, 0}, 0, tt.t1, harmonic, cond)
			if err != nil {
				t.Fatal(err)
			}
			if !sol.ConditionSatisfied || sol.Condition != "x0 zero" {
				t.Fatalf("condition not reported: %+v", sol)
			}
			if math.Abs(sol.Time-tt.want) > 1e-6 {
				t.Errorf("event at %.10f, want %.10f", sol.Time, tt.want)
			}

			// The last two observations are the start of the accepted step
			// that crossed and the localized event.
			if len(seen) < 2 {
				t.Fatalf("expected at least two observations, got %d", len(seen))
			}
			prev := seen[len(seen)-2]
			if last := seen[len(seen)-1]; last.t != sol.Time {
				t.Errorf("last observation at %v, want the event at %v", last.t, sol.Time)
			}
			span := math.Abs(sol.Time - prev.t)
			if span <= 0 || span >= cfg.MaxStepSize || math.Signbit(sol.Time-prev.t) != math.Signbit(tt.t1) {
				t.Errorf("event at %v not inside the step starting at %v", sol.Time, prev.t)
			}
			if !cond.IsSatisfied(sol.State, sol.Time, prev.x, prev.t) {
				t.Errorf("condition does not hold at the returned state %v", sol.State)
			}
		})
	}
}

func TestIntegrateTimeToConditions_TargetReached(t *testing.T) {
	s := newSolver(t, fixedConfig(0.1))
	cond := zeroCrossing(t, eventcondition.NegativeCrossing)

	sol, err := s.IntegrateTimeToConditions(context.Background(), dynamo.StateVector{1, 0}, 0, 1, harmonic, cond)
	if err != nil {
		t.Fatal(err)
	}
	if sol.ConditionSatisfied || sol.Condition != "" {
		t.Errorf("condition should not fire before pi/2: %+v", sol)
	}
	if sol.Time != 1 {
		t.Errorf("time = %v, want 1", sol.Time)
	}
}

func TestIntegrateTimeToConditions_FirstWins(t *testing.T) {
	s := newSolver(t, fixedConfig(0.1))
	first, _ := eventcondition.NewCoordinateCondition("first", eventcondition.NegativeCrossing, 0, 0.5)
	second, _ := eventcondition.NewCoordinateCondition("second", eventcondition.NegativeCrossing, 0, 0.51)

	sol, err := s.IntegrateTimeToConditions(context.Background(), dynamo.StateVector{1, 0}, 0, 10, harmonic, second, first)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Condition != "second" {
		t.Errorf("condition = %q, want second", sol.Condition)
	}

	if _, err := s.IntegrateTimeToConditions(context.Background(), dynamo.StateVector{1, 0}, 0, 10, harmonic, nil); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("nil condition: %v", err)
	}
}

func TestIntegrateTimeToConditions_Conjunctive(t *testing.T) {
	s := newSolver(t, fixedConfig(0.1))
	crossing := zeroCrossing(t, eventcondition.PositiveCrossing)
	rising, _ := eventcondition.NewCoordinateCondition("rising", eventcondition.StrictlyPositive, 1, 0)
	both, err := eventcondition.NewConjunctive(crossing, rising)
	if err != nil {
		t.Fatal(err)
	}

	// x0 = cos t crosses zero upward at 3pi/2, where x1 = -sin t = 1.
	sol, err := s.IntegrateTimeToConditions(context.Background(), dynamo.StateVector{1, 0}, 0, 10, harmonic, both)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sol.Time-3*math.Pi/2) > 1e-5 {
		t.Errorf("event at %.9f, want %.9f", sol.Time, 3*math.Pi/2)
	}
}

func TestLocalize_ContractViolation(t *testing.T) {
	s := newSolver(t, fixedConfig(0.1))
	cond := zeroCrossing(t, eventcondition.NegativeCrossing)

	_, _, err := s.Localize(context.Background(), harmonic, cond, dynamo.StateVector{1, 0}, 0, dynamo.StateVector{0.9, -0.4}, 0.1)
	if !errors.Is(err, dynamo.ErrContractViolation) {
		t.Fatalf("expected ErrContractViolation, got %v", err)
	}
	if !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Error("contract violation should be an invalid configuration")
	}
}

func TestLocalize(t *testing.T) {
	s := newSolver(t, fixedConfig(0.1))
	cond := zeroCrossing(t, eventcondition.NegativeCrossing)

	prev := dynamo.StateVector{math.Cos(1.5), -math.Sin(1.5)}
	curr := dynamo.StateVector{math.Cos(1.6), -math.Sin(1.6)}
	x, at, err := s.Localize(context.Background(), harmonic, cond, prev, 1.5, curr, 1.6)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(at-math.Pi/2) > 1e-6 {
		t.Errorf("localized at %.10f, want %.10f", at, math.Pi/2)
	}
	if !cond.IsSatisfied(x, at, prev, 1.5) {
		t.Error("condition must hold at the returned state")
	}
}

func TestTwoBody_RoundTrip(t *testing.T) {
	epoch := time.Date(2021, 3, 20, 12, 0, 0, 0, time.UTC)
	gravity, err := dynamics.NewCentralBodyGravity(environment.NewEarth(environment.GravitySpherical))
	if err != nil {
		t.Fatal(err)
	}
	f, err := dynamics.DynamicalEquations([]dynamics.Contributor{dynamics.NewPositionDerivative(), gravity}, epoch)
	if err != nil {
		t.Fatal(err)
	}

	x0 := dynamo.StateVector{7e6, 0, 0, 0, 7546, 0}
	s := newSolver(t, fixedConfig(10))

	out, err := s.IntegrateTime(context.Background(), x0, 0, 600, f)
	if err != nil {
		t.Fatal(err)
	}
	back, err := s.IntegrateTime(context.Background(), out.State, 600, 0, f)
	if err != nil {
		t.Fatal(err)
	}

	dr := back.State.Sub(x0)[:3].Norm()
	dv := back.State.Sub(x0)[3:].Norm()
	if dr > 1e-2 || dv > 1e-5 {
		t.Errorf("round trip error: %.3e m, %.3e m/s", dr, dv)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown stepper", func(c *Config) { c.Stepper = "midpoint" }},
		{"zero step", func(c *Config) { c.StepSize = 0 }},
		{"zero root tolerance", func(c *Config) { c.RootTolerance = 0 }},
		{"zero root iterations", func(c *Config) { c.MaxRootIterations = 0 }},
		{"zero max steps", func(c *Config) { c.MaxSteps = 0 }},
		{"adaptive without tolerance", func(c *Config) { c.Adaptive, c.Stepper, c.Tolerance = true, "rk45", 0 }},
		{"adaptive inverted bounds", func(c *Config) { c.Adaptive, c.Stepper, c.MinStepSize, c.MaxStepSize = true, "rk45", 10, 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestNew_AdaptiveNeedsEstimate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Adaptive = true
	cfg.Stepper = "rk4"
	if _, err := New(cfg); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}
