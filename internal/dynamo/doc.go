// Package dynamo provides the primitives shared by the propagation packages.
//
// The package defines the fundamental types for integrating ordinary
// differential equations of the form dX/dt = f(X, t):
//
//   - [StateVector]: coordinates being integrated
//   - [Equations]: right-hand side built from dynamics contributors
//   - [Observer]: hook notified of every accepted sub-step
//   - [Metric]: observer that reduces a run to a scalar
//
// Errors are reported through sentinel values ([ErrUndefinedModel],
// [ErrInvalidConfiguration], [ErrNumericalDivergence], [ErrDimensionMismatch])
// matched with errors.Is. Failures raised mid-integration are wrapped in a
// [SimulationError] carrying the step, time and last valid state.
//
// # Example
//
//	f, _ := dynamics.DynamicalEquations(contributors, epoch)
//	s := solver.New(solver.DefaultConfig(), logger)
//	sol, err := s.IntegrateTime(ctx, x0, 0, 3600, f)
//
// # Thread Safety
//
// None of the types hold hidden mutable state. Steppers keep scratch buffers
// and must not be shared between goroutines; see propagator.Batch for running
// independent propagations in parallel.
package dynamo
