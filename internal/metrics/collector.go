package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeTarget = "target"
	OutcomeEvent  = "event"
	OutcomeError  = "error"
)

// Collector counts propagation runs. It registers on the registerer given to
// NewCollector rather than the global one, so several collectors can coexist.
type Collector struct {
	runs        *prometheus.CounterVec
	steps       prometheus.Counter
	evaluations prometheus.Counter
	duration    *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbitprop_propagations_total",
				Help: "Total number of propagation runs by outcome.",
			},
			[]string{"outcome"},
		),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orbitprop_steps_total",
			Help: "Total number of accepted integration steps.",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orbitprop_evaluations_total",
			Help: "Total number of dynamics evaluations.",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orbitprop_propagation_duration_seconds",
				Help:    "Wall-clock duration of propagation runs in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}

	for _, m := range []prometheus.Collector{c.runs, c.steps, c.evaluations, c.duration} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveRun records one finished propagation.
func (c *Collector) ObserveRun(outcome string, steps, evaluations int, elapsed time.Duration) {
	c.runs.WithLabelValues(outcome).Inc()
	c.steps.Add(float64(steps))
	c.evaluations.Add(float64(evaluations))
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// WriteTextfile dumps everything gathered by g in the node-exporter textfile
// format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
