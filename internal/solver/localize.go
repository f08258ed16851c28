package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/eventcondition"
)

// Localize narrows the instant at which cond becomes satisfied between two
// adjacent samples. It returns a state at which cond holds, no further than
// RootTolerance from the true transition. A bracket whose end does not
// satisfy cond is a contract violation.
func (s *Solver) Localize(ctx context.Context, f dynamo.Equations, cond eventcondition.Condition, previous dynamo.StateVector, previousTime float64, current dynamo.StateVector, currentTime float64) (dynamo.StateVector, float64, error) {
	if f == nil || cond == nil {
		return nil, 0, fmt.Errorf("%w: localization needs equations and a condition", dynamo.ErrInvalidConfiguration)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r := s.newRun(f)
	return s.bisect(r, cond, previous, previousTime, current, currentTime)
}

// bisect re-steps from the previous sample, which stays the reference of
// every comparison, so crossing criteria see the same "before" value on each
// iteration.
func (s *Solver) bisect(r *runState, cond eventcondition.Condition, prev dynamo.StateVector, tPrev float64, curr dynamo.StateVector, tCurr float64) (dynamo.StateVector, float64, error) {
	if !cond.IsSatisfied(curr, tCurr, prev, tPrev) {
		return nil, 0, fmt.Errorf("%w: %s not satisfied at t=%g", dynamo.ErrContractViolation, cond.Name(), tCurr)
	}

	lo, hi := tPrev, tCurr
	xHi := curr
	for i := 0; i < s.cfg.MaxRootIterations && math.Abs(hi-lo) > s.cfg.RootTolerance; i++ {
		mid := lo + 0.5*(hi-lo)
		if mid == lo || mid == hi {
			break
		}
		xMid, err := s.stepper.Step(r.f, prev, tPrev, mid-tPrev)
		if err != nil {
			return nil, 0, err
		}
		if !xMid.IsValid() {
			return nil, 0, fmt.Errorf("%w: non-finite state during localization", dynamo.ErrNumericalDivergence)
		}
		if cond.IsSatisfied(xMid, mid, prev, tPrev) {
			hi, xHi = mid, xMid
		} else {
			lo = mid
		}
	}
	return xHi.Clone(), hi, nil
}
