package sequence_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/orbitprop/internal/dynamics"
	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/environment"
	"github.com/san-kum/orbitprop/internal/eventcondition"
	"github.com/san-kum/orbitprop/internal/propagator"
	"github.com/san-kum/orbitprop/internal/sequence"
	"github.com/san-kum/orbitprop/internal/solver"
	"github.com/san-kum/orbitprop/internal/trajectory"
)

var _ = Describe("Sequence", func() {
	var (
		epoch = time.Date(2021, 3, 20, 12, 0, 0, 0, time.UTC)
		prop  *propagator.Propagator
		start trajectory.State
	)

	BeforeEach(func() {
		gravity, err := dynamics.NewCentralBodyGravity(environment.NewEarth(environment.GravitySpherical))
		Expect(err).NotTo(HaveOccurred())
		prop, err = propagator.New([]dynamics.Contributor{dynamics.NewPositionDerivative(), gravity}, solver.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		v := math.Sqrt(environment.EarthMu / 7e6)
		start = trajectory.NewState(epoch, dynamo.StateVector{7e6, 0, 0, 0, v, 0}, trajectory.GCRF)
	})

	coast := func(name string, seconds float64) *sequence.Segment {
		cond, err := eventcondition.NewDurationCondition("", eventcondition.PositiveCrossing, seconds)
		Expect(err).NotTo(HaveOccurred())
		seg, err := sequence.NewCoastSegment(name, cond, prop)
		Expect(err).NotTo(HaveOccurred())
		return seg
	}

	It("chains segments and repetitions", func() {
		seq, err := sequence.New([]*sequence.Segment{coast("short", 60), coast("long", 120)}, 2, time.Hour, nil)
		Expect(err).NotTo(HaveOccurred())

		sol, err := seq.Solve(context.Background(), start)
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Segments).To(HaveLen(4))
		Expect(sol.Segments[0].Name).To(Equal("short"))
		Expect(sol.Segments[3].Name).To(Equal("long"))
		Expect(sol.Duration()).To(BeNumerically("~", 360*time.Second, time.Millisecond))

		for i := 1; i < len(sol.Segments); i++ {
			Expect(sol.Segments[i].Initial.Equal(sol.Segments[i-1].Final)).To(BeTrue())
		}
		for _, seg := range sol.Segments {
			Expect(seg.Steps).To(BeNumerically(">", 0))
			Expect(seg.Evaluations).To(BeNumerically(">=", 4*seg.Steps))
		}
		Expect(math.Hypot(sol.FinalState().Position().X, sol.FinalState().Position().Y)).To(BeNumerically("~", 7e6, 1))
	})

	It("stops with a partial solution at the maximum duration", func() {
		seq, err := sequence.New([]*sequence.Segment{coast("first", 60), coast("too long", 600)}, 1, 5*time.Minute, nil)
		Expect(err).NotTo(HaveOccurred())

		sol, err := seq.Solve(context.Background(), start)
		Expect(err).To(MatchError(sequence.ErrMaximumDuration))
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
		Expect(sol.Segments).To(HaveLen(2))
		Expect(sol.Segments[1].ConditionSatisfied).To(BeFalse())
		Expect(sol.Segments[1].Duration()).To(Equal(5 * time.Minute))
	})

	It("coasts backward with a negative maximum duration", func() {
		cond, err := eventcondition.NewDurationCondition("", eventcondition.NegativeCrossing, -90)
		Expect(err).NotTo(HaveOccurred())
		seg, err := sequence.NewCoastSegment("back", cond, prop)
		Expect(err).NotTo(HaveOccurred())

		seq, err := sequence.New([]*sequence.Segment{seg}, 1, -time.Hour, nil)
		Expect(err).NotTo(HaveOccurred())
		sol, err := seq.Solve(context.Background(), start)
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Duration()).To(BeNumerically("~", -90*time.Second, time.Millisecond))
	})

	DescribeTable("rejects invalid construction",
		func(build func() error) {
			Expect(build()).To(MatchError(dynamo.ErrInvalidConfiguration))
		},
		Entry("no segments", func() error {
			_, err := sequence.New(nil, 1, time.Hour, nil)
			return err
		}),
		Entry("zero repetitions", func() error {
			_, err := sequence.New([]*sequence.Segment{coast("a", 1)}, 0, time.Hour, nil)
			return err
		}),
		Entry("zero duration", func() error {
			_, err := sequence.New([]*sequence.Segment{coast("a", 1)}, 1, 0, nil)
			return err
		}),
		Entry("segment without condition", func() error {
			_, err := sequence.NewCoastSegment("a", nil, prop)
			return err
		}),
	)
})
