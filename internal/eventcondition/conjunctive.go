package eventcondition

import (
	"fmt"
	"strings"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// Conjunctive is satisfied when every member is satisfied on the same pair of
// samples. Members may themselves be conjunctions.
type Conjunctive struct {
	name       string
	conditions []Condition
}

func NewConjunctive(conditions ...Condition) (*Conjunctive, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: conjunctive condition needs at least one member", dynamo.ErrInvalidConfiguration)
	}
	names := make([]string, len(conditions))
	for i, c := range conditions {
		if c == nil {
			return nil, fmt.Errorf("%w: conjunctive member %d is nil", dynamo.ErrInvalidConfiguration, i)
		}
		names[i] = c.Name()
	}
	members := make([]Condition, len(conditions))
	copy(members, conditions)
	return &Conjunctive{name: strings.Join(names, " AND "), conditions: members}, nil
}

func (c *Conjunctive) Name() string { return c.name }

// Conditions returns a copy of the members.
func (c *Conjunctive) Conditions() []Condition {
	out := make([]Condition, len(c.conditions))
	copy(out, c.conditions)
	return out
}

func (c *Conjunctive) IsSatisfied(current dynamo.StateVector, currentTime float64, previous dynamo.StateVector, previousTime float64) bool {
	for _, cond := range c.conditions {
		if !cond.IsSatisfied(current, currentTime, previous, previousTime) {
			return false
		}
	}
	return true
}
