package experiment

import (
	"github.com/san-kum/orbitprop/internal/dynamo"
)

// Sample is one accepted solver step. T is seconds from the scenario epoch.
type Sample struct {
	T float64
	X dynamo.StateVector
}

// ChainClock turns the per-run offsets reported to observers into a single
// clock. Chained runs (sequence segments) each restart at zero; a zero
// offset after the first sample marks the start of a new run, whose samples
// are shifted to continue from the last one.
type ChainClock struct {
	started bool
	last    float64
	base    float64
}

// Shift returns the continued time of t. The second result is false for the
// duplicate first sample of a chained run.
func (c *ChainClock) Shift(t float64) (float64, bool) {
	if t == 0 && c.started {
		c.base = c.last
		return c.last, false
	}
	c.started = true
	c.last = c.base + t
	return c.last, true
}

func (c *ChainClock) Reset() { *c = ChainClock{} }

// Trace records every accepted step on a ChainClock.
type Trace struct {
	samples []Sample
	clock   ChainClock
}

func NewTrace() *Trace {
	return &Trace{}
}

func (tr *Trace) OnStep(x dynamo.StateVector, t float64) {
	at, ok := tr.clock.Shift(t)
	if !ok {
		return
	}
	tr.samples = append(tr.samples, Sample{T: at, X: x.Clone()})
}

func (tr *Trace) Len() int { return len(tr.samples) }

// Samples returns at most n evenly spread samples, always keeping the first
// and the last. n <= 0 returns everything.
func (tr *Trace) Samples(n int) []Sample {
	total := len(tr.samples)
	if n <= 0 || n >= total {
		return append([]Sample(nil), tr.samples...)
	}
	if n == 1 {
		return []Sample{tr.samples[total-1]}
	}
	out := make([]Sample, n)
	for i := range n {
		out[i] = tr.samples[i*(total-1)/(n-1)]
	}
	return out
}

func (tr *Trace) Reset() {
	tr.samples = tr.samples[:0]
	tr.clock.Reset()
}
