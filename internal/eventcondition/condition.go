package eventcondition

import (
	"fmt"
	"math"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// Condition is satisfied by a transition between two samples of a trajectory.
// Times are seconds from the propagation epoch.
type Condition interface {
	Name() string
	IsSatisfied(current dynamo.StateVector, currentTime float64, previous dynamo.StateVector, previousTime float64) bool
}

// Evaluator maps a sample to the scalar a condition tests.
type Evaluator func(x dynamo.StateVector, t float64) float64

// RealCondition compares a scalar evaluator against a fixed target.
type RealCondition struct {
	name      string
	criteria  Criteria
	evaluator Evaluator
	target    float64
}

func NewRealCondition(name string, criteria Criteria, evaluator Evaluator, target float64) (*RealCondition, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("%w: condition %q has no evaluator", dynamo.ErrInvalidConfiguration, name)
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return nil, fmt.Errorf("%w: condition %q target is not finite", dynamo.ErrInvalidConfiguration, name)
	}
	return &RealCondition{name: name, criteria: criteria, evaluator: evaluator, target: target}, nil
}

func (c *RealCondition) Name() string { return c.name }

func (c *RealCondition) Criteria() Criteria { return c.criteria }

func (c *RealCondition) Target() float64 { return c.target }

// Evaluate returns the evaluator value relative to the target.
func (c *RealCondition) Evaluate(x dynamo.StateVector, t float64) float64 {
	return c.evaluator(x, t) - c.target
}

func (c *RealCondition) IsSatisfied(current dynamo.StateVector, currentTime float64, previous dynamo.StateVector, previousTime float64) bool {
	if c.criteria == Undefined {
		return false
	}
	curr := c.evaluator(current, currentTime)
	if !c.criteria.IsCrossing() {
		return c.criteria.Holds(0, curr, c.target)
	}
	return c.criteria.Holds(c.evaluator(previous, previousTime), curr, c.target)
}

func (c *RealCondition) String() string {
	return fmt.Sprintf("%s (%s %g)", c.name, c.criteria, c.target)
}

// AngularCondition compares an angle against a target on the circle. Values
// are reduced to the signed offset from the target in (-pi, pi], and a
// crossing is only reported when that offset changes sign without jumping
// across the opposite side of the circle.
type AngularCondition struct {
	RealCondition
}

func NewAngularCondition(name string, criteria Criteria, evaluator Evaluator, target float64) (*AngularCondition, error) {
	rc, err := NewRealCondition(name, criteria, evaluator, target)
	if err != nil {
		return nil, err
	}
	return &AngularCondition{RealCondition: *rc}, nil
}

// Evaluate returns the signed angular offset from the target.
func (c *AngularCondition) Evaluate(x dynamo.StateVector, t float64) float64 {
	return offset(c.evaluator(x, t), c.target)
}

func (c *AngularCondition) IsSatisfied(current dynamo.StateVector, currentTime float64, previous dynamo.StateVector, previousTime float64) bool {
	if c.criteria == Undefined {
		return false
	}
	curr := c.Evaluate(current, currentTime)
	if !c.criteria.IsCrossing() {
		return c.criteria.Holds(0, curr, 0)
	}
	prev := c.Evaluate(previous, previousTime)
	if math.Abs(curr-prev) >= math.Pi {
		return false
	}
	return c.criteria.Holds(prev, curr, 0)
}

func offset(angle, target float64) float64 {
	d := math.Mod(angle-target, 2*math.Pi)
	switch {
	case d > math.Pi:
		d -= 2 * math.Pi
	case d <= -math.Pi:
		d += 2 * math.Pi
	}
	return d
}
