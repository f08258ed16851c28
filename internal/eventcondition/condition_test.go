package eventcondition_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/orbitprop/internal/dynamo"
	ec "github.com/san-kum/orbitprop/internal/eventcondition"
	"github.com/san-kum/orbitprop/internal/orbit"
)

func component(i int) ec.Evaluator {
	return func(x dynamo.StateVector, _ float64) float64 { return x[i] }
}

func mustReal(name string, criteria ec.Criteria, eval ec.Evaluator, target float64) *ec.RealCondition {
	c, err := ec.NewRealCondition(name, criteria, eval, target)
	Expect(err).NotTo(HaveOccurred())
	return c
}

var _ = Describe("Criteria", func() {
	DescribeTable("String and ParseCriteria round trip",
		func(c ec.Criteria, text string) {
			Expect(c.String()).To(Equal(text))
			parsed, err := ec.ParseCriteria(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(c))
		},
		Entry("positive crossing", ec.PositiveCrossing, "PositiveCrossing"),
		Entry("negative crossing", ec.NegativeCrossing, "NegativeCrossing"),
		Entry("any crossing", ec.AnyCrossing, "AnyCrossing"),
		Entry("strictly positive", ec.StrictlyPositive, "StrictlyPositive"),
		Entry("strictly negative", ec.StrictlyNegative, "StrictlyNegative"),
	)

	It("accepts separated spellings", func() {
		c, err := ec.ParseCriteria("strictly-negative")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(ec.StrictlyNegative))
	})

	It("rejects unknown names", func() {
		_, err := ec.ParseCriteria("sideways")
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
		Expect(ec.Undefined.String()).To(Equal("Undefined"))
	})

	DescribeTable("Holds",
		func(c ec.Criteria, prev, curr float64, want bool) {
			Expect(c.Holds(prev, curr, 0.5)).To(Equal(want))
		},
		Entry("strictly positive above", ec.StrictlyPositive, 0.0, 0.6, true),
		Entry("strictly positive at threshold", ec.StrictlyPositive, 0.0, 0.5, false),
		Entry("strictly negative below", ec.StrictlyNegative, 1.0, 0.4, true),
		Entry("strictly negative at threshold", ec.StrictlyNegative, 1.0, 0.5, false),
		Entry("negative crossing down", ec.NegativeCrossing, 0.6, 0.4, true),
		Entry("negative crossing landing on threshold", ec.NegativeCrossing, 0.6, 0.5, true),
		Entry("negative crossing up", ec.NegativeCrossing, 0.4, 0.6, false),
		Entry("any crossing up", ec.AnyCrossing, 0.4, 0.6, true),
		Entry("any crossing down", ec.AnyCrossing, 0.6, 0.4, true),
		Entry("any crossing none", ec.AnyCrossing, 0.6, 0.7, false),
		Entry("undefined", ec.Undefined, 0.4, 0.6, false),
		Entry("NaN", ec.AnyCrossing, math.NaN(), 0.6, false),
	)
})

var _ = Describe("RealCondition", func() {
	It("rejects a missing evaluator", func() {
		_, err := ec.NewRealCondition("bad", ec.AnyCrossing, nil, 0)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
	})

	It("rejects a non-finite target", func() {
		_, err := ec.NewRealCondition("bad", ec.AnyCrossing, component(0), math.Inf(1))
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
	})

	Describe("PositiveCrossing sign patterns", func() {
		cond := func() *ec.RealCondition { return mustReal("x0", ec.PositiveCrossing, component(0), 0.0) }

		DescribeTable("satisfaction",
			func(prev, curr float64, want bool) {
				Expect(cond().IsSatisfied(dynamo.StateVector{curr}, 1, dynamo.StateVector{prev}, 0)).To(Equal(want))
			},
			Entry("below then at or above", -1.0, 1.0, true),
			Entry("below then landing on threshold", -1.0, 0.0, true),
			Entry("below then below", -1.0, -0.5, false),
			Entry("above then above", 1.0, 2.0, false),
			Entry("above then below", 1.0, -1.0, false),
		)
	})

	It("reports the value relative to the target", func() {
		c := mustReal("x0", ec.AnyCrossing, component(0), 2.0)
		Expect(c.Evaluate(dynamo.StateVector{5}, 0)).To(Equal(3.0))
		Expect(c.Name()).To(Equal("x0"))
		Expect(c.Target()).To(Equal(2.0))
		Expect(c.Criteria()).To(Equal(ec.AnyCrossing))
	})

	It("is stateless across calls", func() {
		c := mustReal("x0", ec.PositiveCrossing, component(0), 0.0)
		curr, prev := dynamo.StateVector{1}, dynamo.StateVector{-1}
		Expect(c.IsSatisfied(curr, 1, prev, 0)).To(BeTrue())
		Expect(c.IsSatisfied(curr, 1, prev, 0)).To(BeTrue())
	})
})

var _ = Describe("Conjunctive", func() {
	var conj *ec.Conjunctive

	BeforeEach(func() {
		first := mustReal("First", ec.PositiveCrossing, component(0), 0.0)
		second := mustReal("Second", ec.StrictlyNegative, component(1), 0.1)
		var err error
		conj, err = ec.NewConjunctive(first, second)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an empty member list", func() {
		_, err := ec.NewConjunctive()
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
	})

	It("names itself after its members", func() {
		Expect(conj.Name()).To(Equal("First AND Second"))
		Expect(conj.Conditions()).To(HaveLen(2))
	})

	DescribeTable("truth table",
		func(current dynamo.StateVector, want bool) {
			previous := dynamo.StateVector{-1.0, 3.0}
			Expect(conj.IsSatisfied(current, 1, previous, 0)).To(Equal(want))
		},
		Entry("first and second", dynamo.StateVector{1.0, 0.0}, true),
		Entry("first only", dynamo.StateVector{1.0, 1.0}, false),
		Entry("neither", dynamo.StateVector{-0.5, 1.0}, false),
		Entry("second only", dynamo.StateVector{-0.5, 0.0}, false),
	)

	It("nests", func() {
		outer, err := ec.NewConjunctive(conj, mustReal("Third", ec.StrictlyPositive, component(0), 0.5))
		Expect(err).NotTo(HaveOccurred())
		Expect(outer.IsSatisfied(dynamo.StateVector{1.0, 0.0}, 1, dynamo.StateVector{-1.0, 3.0}, 0)).To(BeTrue())
		Expect(outer.IsSatisfied(dynamo.StateVector{0.2, 0.0}, 1, dynamo.StateVector{-1.0, 3.0}, 0)).To(BeFalse())
	})
})

var _ = Describe("Built-in conditions", func() {
	It("fires a duration condition in either direction", func() {
		c, err := ec.NewDurationCondition("", ec.AnyCrossing, 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.IsSatisfied(nil, 61, nil, 59)).To(BeTrue())
		Expect(c.IsSatisfied(nil, 59, nil, 61)).To(BeTrue())
		Expect(c.IsSatisfied(nil, 30, nil, 20)).To(BeFalse())
		Expect(c.Name()).To(Equal("Duration Condition"))

		named, err := ec.NewDurationCondition("One minute", ec.AnyCrossing, 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(named.Name()).To(Equal("One minute"))
	})

	It("returns NaN for an out-of-range coordinate", func() {
		c, err := ec.NewCoordinateCondition("z", ec.StrictlyPositive, 5, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.IsSatisfied(dynamo.StateVector{1, 1}, 0, dynamo.StateVector{1, 1}, 0)).To(BeFalse())

		_, err = ec.NewCoordinateCondition("neg", ec.StrictlyPositive, -1, 0)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
	})

	Describe("COE conditions", func() {
		const mu = 3.986004418e14

		state := func(nu float64) dynamo.StateVector {
			r, v, err := orbit.CartesianFromElements(orbit.Elements{
				SemiMajorAxis: 7e6, Eccentricity: 0.01, Inclination: 0.5, TrueAnomaly: nu,
			}, mu)
			Expect(err).NotTo(HaveOccurred())
			return dynamo.StateVector{r.X, r.Y, r.Z, v.X, v.Y, v.Z}
		}

		It("detects a true anomaly crossing", func() {
			c, err := ec.NewCOECondition("apoapsis", ec.PositiveCrossing, orbit.TrueAnomaly, math.Pi, mu)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.IsSatisfied(state(3.2), 1, state(3.0), 0)).To(BeTrue())
			Expect(c.IsSatisfied(state(2.9), 1, state(2.8), 0)).To(BeFalse())
		})

		It("ignores the wrap at periapsis", func() {
			c, err := ec.NewCOECondition("apoapsis", ec.NegativeCrossing, orbit.TrueAnomaly, math.Pi, mu)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.IsSatisfied(state(0.1), 1, state(2*math.Pi-0.1), 0)).To(BeFalse())
		})

		It("compares the semi-major axis directly", func() {
			c, err := ec.NewCOECondition("sma", ec.StrictlyPositive, orbit.SemiMajorAxis, 6.9e6, mu)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.IsSatisfied(state(1), 1, state(1), 0)).To(BeTrue())
		})

		It("rejects a non-positive mu", func() {
			_, err := ec.NewCOECondition("sma", ec.StrictlyPositive, orbit.SemiMajorAxis, 7e6, 0)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
		})
	})
})
