package viz

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/orbitprop/internal/experiment"
	"github.com/san-kum/orbitprop/internal/orbit"
	"github.com/san-kum/orbitprop/internal/trajectory"
)

// Report renders a summary panel of an experiment result. mu is the central
// body's gravitational parameter, used for the element rows.
func Report(res *experiment.Result, mu float64, theme Theme) string {
	st := theme.styles()
	var s strings.Builder

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}

	s.WriteString(st.header.Render(strings.ToUpper(res.Name)) + "\n")
	switch {
	case res.ConditionSatisfied:
		s.WriteString(st.success.Render("EVENT "+res.Condition) + "\n\n")
	case res.Condition != "":
		s.WriteString(st.warning.Render("NOT SATISFIED "+res.Condition) + "\n\n")
	default:
		s.WriteString(st.success.Render("TARGET REACHED") + "\n\n")
	}

	row("Start", res.Initial.Instant().UTC().Format(time.RFC3339Nano))
	row("End", res.Final.Instant().UTC().Format(time.RFC3339Nano))
	row("Duration", res.Final.Instant().Sub(res.Initial.Instant()).String())
	row("Steps", fmt.Sprintf("%d", res.Steps))
	if res.Evaluations > 0 {
		row("Evaluations", fmt.Sprintf("%d", res.Evaluations))
	}
	row("Wall time", res.Elapsed.Round(time.Microsecond).String())

	s.WriteString("\n" + st.title.Render("FINAL STATE") + "\n")
	writeState(&s, st, res.Final, mu)

	if len(res.Segments) > 0 {
		s.WriteString("\n" + st.title.Render("SEGMENTS") + "\n")
		for i, seg := range res.Segments {
			mark := st.success.Render("ok")
			if !seg.ConditionSatisfied {
				mark = st.warning.Render("max")
			}
			s.WriteString(fmt.Sprintf("%2d %-16s %12s %6d steps %s\n", i+1, seg.Name, seg.Duration().Round(time.Millisecond), seg.Steps, mark))
		}
	}

	if len(res.Metrics) > 0 {
		s.WriteString("\n" + st.title.Render("METRICS") + "\n")
		names := make([]string, 0, len(res.Metrics))
		for name := range res.Metrics {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			row(name, fmt.Sprintf("%.6g", res.Metrics[name]))
		}
	}

	if len(res.Samples) > 1 {
		radii := make([]float64, len(res.Samples))
		for i, sample := range res.Samples {
			radii[i] = math.Sqrt(sample.X[0]*sample.X[0] + sample.X[1]*sample.X[1] + sample.X[2]*sample.X[2])
		}
		s.WriteString("\n" + st.label.Render("Radius") + Sparkline(radii, 40, theme) + "\n")
	}

	return st.panel.Render(strings.TrimRight(s.String(), "\n"))
}

func writeState(s *strings.Builder, st styles, state trajectory.State, mu float64) {
	if !state.IsDefined() || state.Size() < 6 {
		s.WriteString(st.muted.Render("(undefined)") + "\n")
		return
	}
	r, v := state.Position(), state.Velocity()
	s.WriteString(st.label.Render("r [km]") + st.value.Render(fmt.Sprintf("%12.3f %12.3f %12.3f", r.X/1e3, r.Y/1e3, r.Z/1e3)) + "\n")
	s.WriteString(st.label.Render("v [km/s]") + st.value.Render(fmt.Sprintf("%12.6f %12.6f %12.6f", v.X/1e3, v.Y/1e3, v.Z/1e3)) + "\n")

	coe, err := orbit.ElementsFromCartesian(r, v, mu)
	if err != nil {
		s.WriteString(st.failure.Render(err.Error()) + "\n")
		return
	}
	for _, e := range []orbit.Element{orbit.SemiMajorAxis, orbit.Eccentricity, orbit.Inclination, orbit.RAAN, orbit.AOP, orbit.TrueAnomaly} {
		s.WriteString(st.label.Render(e.String()) + st.value.Render(fmt.Sprintf("%.6f %s", displayElement(coe, e), elementUnit(e))) + "\n")
	}
}

// Sparkline renders values as a one-line bar chart of the given width.
func Sparkline(values []float64, width int, theme Theme) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	bars := []rune("▁▂▃▄▅▆▇█")

	lo, hi := slices.Min(values), slices.Max(values)
	span := hi - lo
	if span == 0 {
		span = 1
	}

	n := min(width, len(values))
	out := make([]rune, n)
	for i := range n {
		v := values[i*len(values)/n]
		idx := int((v - lo) / span * float64(len(bars)-1))
		out[i] = bars[max(0, min(idx, len(bars)-1))]
	}
	return lipgloss.NewStyle().Foreground(theme.Accent).Render(string(out))
}
