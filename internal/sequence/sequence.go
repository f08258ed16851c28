// Package sequence chains coast segments, each ending on its own event
// condition, and optionally repeats the chain.
package sequence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/eventcondition"
	"github.com/san-kum/orbitprop/internal/propagator"
	"github.com/san-kum/orbitprop/internal/trajectory"
)

// ErrMaximumDuration is returned when a segment's condition is not met within
// the sequence's maximum propagation duration.
var ErrMaximumDuration = fmt.Errorf("%w: segment condition not satisfied within maximum duration", dynamo.ErrInvalidConfiguration)

// Segment coasts under its propagator's dynamics until its condition holds.
// Condition times are seconds from the segment's initial instant.
type Segment struct {
	name       string
	condition  eventcondition.Condition
	propagator *propagator.Propagator
}

func NewCoastSegment(name string, condition eventcondition.Condition, p *propagator.Propagator) (*Segment, error) {
	if condition == nil {
		return nil, fmt.Errorf("%w: segment %q has no event condition", dynamo.ErrInvalidConfiguration, name)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: segment %q has no propagator", dynamo.ErrInvalidConfiguration, name)
	}
	return &Segment{name: name, condition: condition, propagator: p}, nil
}

func (s *Segment) Name() string { return s.name }

func (s *Segment) Condition() eventcondition.Condition { return s.condition }

// SegmentSolution is the outcome of one segment run.
type SegmentSolution struct {
	Name               string
	Initial            trajectory.State
	Final              trajectory.State
	ConditionSatisfied bool
	Steps              int
	Evaluations        int
}

// Duration is the signed time spent in the segment.
func (s SegmentSolution) Duration() time.Duration {
	return s.Final.Instant().Sub(s.Initial.Instant())
}

// Solve runs the segment from state for at most maxDuration, which may be
// negative for a backward coast.
func (s *Segment) Solve(ctx context.Context, state trajectory.State, maxDuration time.Duration) (SegmentSolution, error) {
	res, err := s.propagator.CalculateStateToCondition(ctx, state, state.Instant().Add(maxDuration), s.condition)
	if err != nil {
		return SegmentSolution{}, fmt.Errorf("segment %s: %w", s.name, err)
	}
	return SegmentSolution{
		Name:               s.name,
		Initial:            state,
		Final:              res.State,
		ConditionSatisfied: res.ConditionSatisfied,
		Steps:              res.Steps,
		Evaluations:        res.Evaluations,
	}, nil
}

// Solution collects the segment solutions in execution order.
type Solution struct {
	Segments []SegmentSolution
}

// FinalState is the state at the end of the last completed segment.
func (s Solution) FinalState() trajectory.State {
	if len(s.Segments) == 0 {
		return trajectory.State{}
	}
	return s.Segments[len(s.Segments)-1].Final
}

func (s Solution) Duration() time.Duration {
	if len(s.Segments) == 0 {
		return 0
	}
	return s.FinalState().Instant().Sub(s.Segments[0].Initial.Instant())
}

// Sequence runs its segments in order, repetitions times.
type Sequence struct {
	segments    []*Segment
	repetitions int
	maxDuration time.Duration
	logger      *slog.Logger
}

func New(segments []*Segment, repetitions int, maxDuration time.Duration, logger *slog.Logger) (*Sequence, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: sequence has no segments", dynamo.ErrInvalidConfiguration)
	}
	if repetitions < 1 {
		return nil, fmt.Errorf("%w: repetition count must be at least 1, got %d", dynamo.ErrInvalidConfiguration, repetitions)
	}
	if maxDuration == 0 {
		return nil, fmt.Errorf("%w: maximum propagation duration is zero", dynamo.ErrInvalidConfiguration)
	}
	for i, s := range segments {
		if s == nil {
			return nil, fmt.Errorf("%w: segment %d is nil", dynamo.ErrInvalidConfiguration, i)
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sequence{
		segments:    append([]*Segment(nil), segments...),
		repetitions: repetitions,
		maxDuration: maxDuration,
		logger:      logger,
	}, nil
}

func (q *Sequence) Segments() []*Segment { return append([]*Segment(nil), q.segments...) }

func (q *Sequence) Repetitions() int { return q.repetitions }

func (q *Sequence) MaxDuration() time.Duration { return q.maxDuration }

// Solve runs every segment from state. If a segment does not reach its
// condition within the maximum duration, the partial solution is returned
// together with ErrMaximumDuration.
func (q *Sequence) Solve(ctx context.Context, state trajectory.State) (Solution, error) {
	var sol Solution
	current := state

	for rep := 0; rep < q.repetitions; rep++ {
		for _, seg := range q.segments {
			s, err := seg.Solve(ctx, current, q.maxDuration)
			if err != nil {
				return sol, err
			}
			sol.Segments = append(sol.Segments, s)

			q.logger.Debug("segment solved",
				"segment", seg.Name(),
				"repetition", rep,
				"duration", s.Duration(),
				"satisfied", s.ConditionSatisfied)

			if !s.ConditionSatisfied {
				q.logger.Warn("segment hit maximum duration",
					"segment", seg.Name(),
					"max_duration", q.maxDuration)
				return sol, fmt.Errorf("segment %s: %w", seg.Name(), ErrMaximumDuration)
			}
			current = s.Final
		}
	}
	return sol, nil
}
