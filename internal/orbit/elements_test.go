package orbit

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const mu = 3.986004418e14

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		coe  Elements
	}{
		{"inclined eccentric", Elements{SemiMajorAxis: 8e6, Eccentricity: 0.1, Inclination: 0.5, RAAN: 1.0, AOP: 2.0, TrueAnomaly: 0.7}},
		{"polar", Elements{SemiMajorAxis: 7.2e6, Eccentricity: 0.01, Inclination: math.Pi / 2, RAAN: 4.0, AOP: 0.3, TrueAnomaly: 5.5}},
		{"molniya", Elements{SemiMajorAxis: 26.6e6, Eccentricity: 0.74, Inclination: 1.1072, RAAN: 0.2, AOP: 4.7124, TrueAnomaly: 3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, v, err := CartesianFromElements(tt.coe, mu)
			if err != nil {
				t.Fatalf("CartesianFromElements: %v", err)
			}
			got, err := ElementsFromCartesian(r, v, mu)
			if err != nil {
				t.Fatalf("ElementsFromCartesian: %v", err)
			}

			if math.Abs(got.SemiMajorAxis-tt.coe.SemiMajorAxis) > 1e-3 {
				t.Errorf("a = %.6f, want %.6f", got.SemiMajorAxis, tt.coe.SemiMajorAxis)
			}
			for _, el := range []Element{Eccentricity, Inclination, RAAN, AOP, TrueAnomaly} {
				if math.Abs(got.Value(el)-tt.coe.Value(el)) > 1e-9 {
					t.Errorf("%s = %.12f, want %.12f", el, got.Value(el), tt.coe.Value(el))
				}
			}
		})
	}
}

func TestCircularEquatorial(t *testing.T) {
	r := r3.Vec{X: 7e6}
	v := r3.Vec{Y: math.Sqrt(mu / 7e6)}

	coe, err := ElementsFromCartesian(r, v, mu)
	if err != nil {
		t.Fatalf("ElementsFromCartesian: %v", err)
	}
	if math.Abs(coe.SemiMajorAxis-7e6) > 1e-3 {
		t.Errorf("a = %f, want 7e6", coe.SemiMajorAxis)
	}
	if coe.Eccentricity > 1e-12 {
		t.Errorf("e = %e, want 0", coe.Eccentricity)
	}
	if coe.Inclination != 0 || coe.RAAN != 0 || coe.AOP != 0 {
		t.Errorf("undefined angles should be zero: %+v", coe)
	}
	if coe.TrueAnomaly != 0 {
		t.Errorf("true longitude = %f, want 0", coe.TrueAnomaly)
	}
}

func TestSpecificEnergy(t *testing.T) {
	r := r3.Vec{X: 7e6}
	v := r3.Vec{Y: math.Sqrt(mu / 7e6)}
	want := -mu / (2 * 7e6)
	if got := SpecificEnergy(r, v, mu); math.Abs(got-want) > 1e-6 {
		t.Errorf("SpecificEnergy = %f, want %f", got, want)
	}
}

func TestInvalidInputs(t *testing.T) {
	if _, err := ElementsFromCartesian(r3.Vec{}, r3.Vec{Y: 1}, mu); err == nil {
		t.Error("expected error for zero position")
	}
	if _, _, err := CartesianFromElements(Elements{SemiMajorAxis: -1, Eccentricity: 0.1}, mu); err == nil {
		t.Error("expected error for negative semi-parameter")
	}
}

func TestParseElement(t *testing.T) {
	for e := SemiMajorAxis; e <= TrueAnomaly; e++ {
		got, err := ParseElement(e.String())
		if err != nil || got != e {
			t.Errorf("ParseElement(%q) = %v, %v", e.String(), got, err)
		}
	}
	if _, err := ParseElement("MeanMotion"); err == nil {
		t.Error("expected error for unknown element")
	}
}
