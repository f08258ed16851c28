package satellite

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*System)
		wantErr bool
	}{
		{"default", func(*System) {}, false},
		{"zero mass", func(s *System) { s.Mass = 0 }, true},
		{"negative area", func(s *System) { s.SurfaceArea = -1 }, true},
		{"negative drag", func(s *System) { s.DragCoefficient = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, dynamo.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestBallisticCoefficient(t *testing.T) {
	s := Default()
	if got := s.BallisticCoefficient(); math.Abs(got-0.022) > 1e-12 {
		t.Errorf("BallisticCoefficient() = %f, want 0.022", got)
	}
	if got := (System{}).BallisticCoefficient(); got != 0 {
		t.Errorf("BallisticCoefficient() of empty system = %f, want 0", got)
	}
}
