package trajectory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/orbit"
)

// Builder creates states in a fixed frame.
type Builder struct {
	frame string
}

func NewBuilder(frame string) *Builder {
	if frame == "" {
		frame = GCRF
	}
	return &Builder{frame: frame}
}

func (b *Builder) Frame() string { return b.frame }

// Build wraps raw coordinates.
func (b *Builder) Build(instant time.Time, coordinates dynamo.StateVector) (State, error) {
	if instant.IsZero() {
		return State{}, fmt.Errorf("%w: state instant is undefined", dynamo.ErrInvalidConfiguration)
	}
	if len(coordinates) == 0 {
		return State{}, fmt.Errorf("%w: state has no coordinates", dynamo.ErrInvalidConfiguration)
	}
	if !coordinates.IsValid() {
		return State{}, fmt.Errorf("%w: initial coordinates are not finite", dynamo.ErrNumericalDivergence)
	}
	return NewState(instant, coordinates, b.frame), nil
}

// FromElements converts classical elements about a body of parameter mu.
func (b *Builder) FromElements(instant time.Time, coe orbit.Elements, mu float64) (State, error) {
	r, v, err := orbit.CartesianFromElements(coe, mu)
	if err != nil {
		return State{}, err
	}
	return FromPositionVelocity(instant, r, v, b.frame), nil
}

// FromTLE evaluates SGP4 at instant. The TEME output is used as the inertial
// frame without a precession-nutation correction. go-satellite only accepts
// whole seconds, so the sub-second part of instant is dropped.
func (b *Builder) FromTLE(line1, line2 string, instant time.Time) (State, error) {
	if err := validateTLELines(line1, line2); err != nil {
		return State{}, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfiguration, err)
	}

	sat := satellite.TLEToSat(strings.TrimSpace(line1), strings.TrimSpace(line2), satellite.GravityWGS84)
	if sat.Error != 0 {
		return State{}, fmt.Errorf("%w: sgp4 init failed: code=%d %s", dynamo.ErrUndefinedModel, sat.Error, sat.ErrorStr)
	}

	utc := instant.UTC()
	pos, vel := satellite.Propagate(sat, utc.Year(), int(utc.Month()), utc.Day(), utc.Hour(), utc.Minute(), utc.Second())

	r := r3.Vec{X: pos.X * 1e3, Y: pos.Y * 1e3, Z: pos.Z * 1e3}
	v := r3.Vec{X: vel.X * 1e3, Y: vel.Y * 1e3, Z: vel.Z * 1e3}
	state := FromPositionVelocity(utc.Truncate(time.Second), r, v, b.frame)
	if !state.coordinates.IsValid() || r3.Norm(r) == 0 || math.IsNaN(r3.Norm(v)) {
		return State{}, fmt.Errorf("%w: sgp4 propagation produced an invalid state", dynamo.ErrNumericalDivergence)
	}
	return state, nil
}

// go-satellite calls log.Fatal on malformed lines, so reject them first.
func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	for i, line := range []string{line1, line2} {
		if err := tleChecksum(line); err != nil {
			return fmt.Errorf("line%d: %w", i+1, err)
		}
	}

	compact := func(s string) string { return strings.Replace(s, " ", "", 2) }
	ints := []struct {
		name  string
		value string
	}{
		{"satellite number", strings.TrimSpace(line1[2:7])},
		{"epoch year", line1[18:20]},
	}
	for _, f := range ints {
		if _, err := strconv.ParseInt(f.value, 10, 64); err != nil {
			return fmt.Errorf("%s %q is not an integer", f.name, f.value)
		}
	}
	floats := []struct {
		name  string
		value string
	}{
		{"epoch day", line1[20:32]},
		{"mean motion derivative", compact(line1[33:43])},
		{"mean motion second derivative", compact(line1[44:45] + "." + line1[45:50] + "e" + line1[50:52])},
		{"bstar", compact(line1[53:54] + "." + line1[54:59] + "e" + line1[59:61])},
		{"inclination", compact(line2[8:16])},
		{"right ascension", compact(line2[17:25])},
		{"eccentricity", "." + line2[26:33]},
		{"argument of perigee", compact(line2[34:42])},
		{"mean anomaly", compact(line2[43:51])},
		{"mean motion", compact(line2[52:63])},
	}
	for _, f := range floats {
		if _, err := strconv.ParseFloat(f.value, 64); err != nil {
			return fmt.Errorf("%s %q is not a number", f.name, f.value)
		}
	}
	return nil
}

// tleChecksum checks column 69: the sum of all digits on the line, with each
// minus sign counting as one, modulo 10.
func tleChecksum(line string) error {
	sum := 0
	for _, c := range line[:68] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	want := line[68]
	if want < '0' || want > '9' || int(want-'0') != sum%10 {
		return fmt.Errorf("checksum '%c', expected %d", want, sum%10)
	}
	return nil
}
