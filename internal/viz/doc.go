// Package viz renders propagations in the terminal.
//
// Static output:
//
//   - [Report]: lipgloss summary of an experiment result
//   - [AltitudePlot], [ElementPlot]: asciigraph charts over the recorded samples
//   - [OrbitPlot]: braille [Canvas] projection of the trajectory
//
// Live output runs the propagation under a Bubble Tea program ([RunLive]).
// The solver feeds samples through a bounded [Feed]; pausing the view stops
// draining the feed, which in turn blocks the solver.
//
// # Key Bindings
//
//	Space - Pause/Resume propagation
//	H/L   - Rotate camera azimuth
//	J/K   - Tilt camera elevation
//	+/-   - Zoom
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit (cancels the propagation)
package viz
