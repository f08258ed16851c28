package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/experiment"
	"github.com/san-kum/orbitprop/internal/orbit"
)

// AltitudePlot charts the altitude above a spherical body, in km.
func AltitudePlot(samples []experiment.Sample, radius float64, width, height int) string {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if len(s.X) < 3 {
			continue
		}
		values = append(values, (r3.Norm(position(s))-radius)/1e3)
	}
	return chart(values, width, height, "altitude [km]")
}

// ElementPlot charts one classical element. Angles are shown in degrees and
// the semi-major axis in km.
func ElementPlot(samples []experiment.Sample, element orbit.Element, mu float64, width, height int) string {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if len(s.X) < 6 {
			continue
		}
		coe, err := orbit.ElementsFromCartesian(position(s), velocity(s), mu)
		if err != nil {
			continue
		}
		values = append(values, displayElement(coe, element))
	}
	return chart(values, width, height, fmt.Sprintf("%s [%s]", element, elementUnit(element)))
}

func chart(values []float64, width, height int, caption string) string {
	if len(values) < 2 {
		return "(not enough samples to plot " + caption + ")"
	}
	return asciigraph.Plot(values,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Precision(3),
		asciigraph.Caption(caption))
}

func displayElement(coe orbit.Elements, element orbit.Element) float64 {
	v := coe.Value(element)
	switch element {
	case orbit.SemiMajorAxis:
		return v / 1e3
	case orbit.Eccentricity:
		return v
	}
	return v * 180 / math.Pi
}

func elementUnit(element orbit.Element) string {
	switch element {
	case orbit.SemiMajorAxis:
		return "km"
	case orbit.Eccentricity:
		return "-"
	}
	return "deg"
}

func position(s experiment.Sample) r3.Vec {
	return r3.Vec{X: s.X[0], Y: s.X[1], Z: s.X[2]}
}

func velocity(s experiment.Sample) r3.Vec {
	return r3.Vec{X: s.X[3], Y: s.X[4], Z: s.X[5]}
}

// Positions extracts the position part of the samples.
func Positions(samples []experiment.Sample) []r3.Vec {
	out := make([]r3.Vec, 0, len(samples))
	for _, s := range samples {
		if len(s.X) >= 3 {
			out = append(out, position(s))
		}
	}
	return out
}
