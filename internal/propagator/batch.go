package propagator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/eventcondition"
	"github.com/san-kum/orbitprop/internal/trajectory"
)

// Job is one independent propagation. Jobs must not share mutable state;
// sharing celestial bodies between their contributors is fine.
type Job struct {
	Name       string
	Propagator *Propagator
	State      trajectory.State
	Instant    time.Time
	Condition  eventcondition.Condition
}

type BatchResult struct {
	Name   string
	Result Result
	Err    error
}

// Batch runs jobs on up to workers goroutines (GOMAXPROCS when workers <= 0).
// Results come back in job order; the returned error joins every job error.
func Batch(ctx context.Context, jobs []Job, workers int, logger *slog.Logger) ([]BatchResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	results := make([]BatchResult, len(jobs))
	indices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				results[idx] = runJob(ctx, jobs[idx])
			}
		}()
	}

	start := time.Now()
feed:
	for i := range jobs {
		select {
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				results[j] = BatchResult{Name: jobs[j].Name, Err: ctx.Err()}
			}
			break feed
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	logger.Info("batch finished",
		"jobs", len(jobs),
		"workers", workers,
		"failed", len(errs),
		"elapsed", time.Since(start))
	return results, errors.Join(errs...)
}

func runJob(ctx context.Context, job Job) BatchResult {
	out := BatchResult{Name: job.Name}
	if job.Propagator == nil {
		out.Err = fmt.Errorf("%w: job has no propagator", dynamo.ErrInvalidConfiguration)
		return out
	}
	out.Result, out.Err = job.Propagator.propagate(ctx, job.State, job.Instant, job.Condition)
	return out
}
