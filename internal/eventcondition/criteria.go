// Package eventcondition defines the predicates that stop a propagation.
//
// A condition is stateless: the solver passes both the current and the
// previous sample on every call, and crossing criteria compare the two.
package eventcondition

import (
	"fmt"
	"strings"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

type Criteria uint8

const (
	Undefined Criteria = iota
	PositiveCrossing
	NegativeCrossing
	AnyCrossing
	StrictlyPositive
	StrictlyNegative
)

func (c Criteria) String() string {
	switch c {
	case PositiveCrossing:
		return "PositiveCrossing"
	case NegativeCrossing:
		return "NegativeCrossing"
	case AnyCrossing:
		return "AnyCrossing"
	case StrictlyPositive:
		return "StrictlyPositive"
	case StrictlyNegative:
		return "StrictlyNegative"
	}
	return "Undefined"
}

// ParseCriteria accepts the String form, case-insensitively, with or without
// separators ("positive-crossing", "strictly_negative").
func ParseCriteria(s string) (Criteria, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	for c := PositiveCrossing; c <= StrictlyNegative; c++ {
		if strings.ToLower(c.String()) == key {
			return c, nil
		}
	}
	return Undefined, fmt.Errorf("%w: unknown criteria %q", dynamo.ErrInvalidConfiguration, s)
}

// IsCrossing reports whether the criteria compares two samples.
func (c Criteria) IsCrossing() bool {
	return c == PositiveCrossing || c == NegativeCrossing || c == AnyCrossing
}

// Holds applies the criteria to the previous and current values against a
// threshold. NaN never satisfies anything.
func (c Criteria) Holds(previous, current, threshold float64) bool {
	switch c {
	case StrictlyPositive:
		return current > threshold
	case StrictlyNegative:
		return current < threshold
	case PositiveCrossing:
		return previous < threshold && current >= threshold
	case NegativeCrossing:
		return previous > threshold && current <= threshold
	case AnyCrossing:
		return (previous < threshold && current >= threshold) ||
			(previous > threshold && current <= threshold)
	}
	return false
}
