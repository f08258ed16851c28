package dynamics

import (
	"time"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

// PositionDerivative contributes the kinematic identity dr/dt = v.
type PositionDerivative struct {
	name string
}

func NewPositionDerivative() *PositionDerivative {
	return &PositionDerivative{name: "Position Derivative"}
}

func (p *PositionDerivative) Name() string { return p.name }

func (p *PositionDerivative) Contribution(x dynamo.StateVector, _ time.Time) (dynamo.StateVector, error) {
	if err := requireCartesian(x); err != nil {
		return nil, err
	}
	dx := make(dynamo.StateVector, len(x))
	copy(dx[:3], x[3:6])
	return dx, nil
}
