package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/orbitprop/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if cfg.InitState.Elements == nil {
		t.Fatal("default initial state should be elements")
	}
	if !cfg.Epoch.Equal(J2000) {
		t.Errorf("expected J2000 epoch, got %v", cfg.Epoch)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("heo", "molniya")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.InitState.Elements.Eccentricity != 0.74 {
		t.Errorf("expected eccentricity 0.74, got %f", cfg.InitState.Elements.Eccentricity)
	}

	cfg.InitState.Elements.Eccentricity = 0.1
	cfg.Bodies[0] = "Sun"
	again := GetPreset("heo", "molniya")
	if again.InitState.Elements.Eccentricity != 0.74 || again.Bodies[0] != "Moon" {
		t.Error("GetPreset should return an independent copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("leo", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "circular"); cfg != nil {
		t.Error("expected nil for nonexistent regime")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("leo")
	if len(presets) == 0 {
		t.Fatal("expected presets for leo")
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1] > presets[i] {
			t.Errorf("presets not sorted: %v", presets)
		}
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent regime")
	}
	if got := Regimes(); len(got) != len(Presets) {
		t.Errorf("expected %d regimes, got %d", len(Presets), len(got))
	}
}

func TestPresetsAreValid(t *testing.T) {
	for regime, group := range Presets {
		for name, cfg := range group {
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", regime, name, err)
			}
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	cfg := GetPreset("heo", "apogee-passes")

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Name != cfg.Name {
		t.Errorf("name: got %q, want %q", loaded.Name, cfg.Name)
	}
	if !loaded.Epoch.Equal(cfg.Epoch) {
		t.Errorf("epoch: got %v, want %v", loaded.Epoch, cfg.Epoch)
	}
	if loaded.Sequence == nil || len(loaded.Sequence.Segments) != 2 {
		t.Fatalf("sequence not restored: %+v", loaded.Sequence)
	}
	if loaded.Sequence.Segments[0].Condition.Target != 180 {
		t.Errorf("segment target: got %g", loaded.Sequence.Segments[0].Condition.Target)
	}
	if loaded.Solver.StepSize != 30 {
		t.Errorf("step size: got %g", loaded.Solver.StepSize)
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := `
name: cartesian
duration: -600
init_state:
  cartesian: [7000000, 0, 0, 0, 7546, 0]
solver:
  stepper: rk45
  adaptive: true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InitState.Elements != nil {
		t.Error("default elements leaked into a cartesian scenario")
	}
	if cfg.Duration != -600 {
		t.Errorf("duration: got %g", cfg.Duration)
	}
	if cfg.Solver.RootTolerance <= 0 || cfg.Solver.MaxSteps <= 0 {
		t.Error("unset solver fields should keep their defaults")
	}
	if cfg.Gravity != DefaultGravity {
		t.Errorf("gravity: got %q", cfg.Gravity)
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "name: [unterminated"},
		{"two forms", "init_state:\n  cartesian: [1, 2, 3, 4, 5, 6]\n  tle: [a, b]\n"},
		{"unknown body", "bodies: [Pluto]\n"},
		{"earth third body", "bodies: [Earth]\n"},
		{"bad stepper", "solver:\n  stepper: magic\n"},
	}

	for _, tt := range tests {
		path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
		if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if !errors.Is(err, dynamo.ErrInvalidConfiguration) {
			t.Errorf("%s: expected invalid configuration, got %v", tt.name, err)
		}
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		target error
	}{
		{"zero duration", func(c *Config) { c.Duration = 0 }, dynamo.ErrInvalidConfiguration},
		{"no frame", func(c *Config) { c.Frame = "" }, dynamo.ErrInvalidConfiguration},
		{"undefined gravity", func(c *Config) { c.Gravity = "undefined" }, dynamo.ErrUndefinedModel},
		{"hyperbolic", func(c *Config) { c.InitState.Elements.Eccentricity = 1.2 }, dynamo.ErrInvalidConfiguration},
		{"short cartesian", func(c *Config) {
			c.InitState = InitStateConfig{Cartesian: []float64{1, 2, 3}}
		}, dynamo.ErrDimensionMismatch},
		{"empty init state", func(c *Config) { c.InitState = InitStateConfig{} }, dynamo.ErrInvalidConfiguration},
		{"bad mass", func(c *Config) { c.Satellite.Mass = 0 }, dynamo.ErrInvalidConfiguration},
		{"bad criteria", func(c *Config) {
			c.Condition = &ConditionConfig{Type: ConditionDuration, Criteria: "sideways", Target: 10}
		}, dynamo.ErrInvalidConfiguration},
		{"empty conjunction", func(c *Config) {
			c.Condition = &ConditionConfig{Type: ConditionAll}
		}, dynamo.ErrInvalidConfiguration},
		{"bad element", func(c *Config) {
			c.Condition = &ConditionConfig{Type: ConditionElement, Element: "Anomaly", Criteria: "AnyCrossing"}
		}, dynamo.ErrInvalidConfiguration},
		{"no segments", func(c *Config) {
			c.Sequence = &SequenceConfig{Repetitions: 1, MaxDuration: 100}
		}, dynamo.ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestValidate_NestedCondition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Condition = &ConditionConfig{
		Type: ConditionAll,
		All: []ConditionConfig{
			{Type: ConditionCoordinate, Index: 2, Criteria: "PositiveCrossing"},
			{Type: ConditionDuration, Criteria: "StrictlyPositive", Target: 60},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEndInstant(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Duration = -1.5
	if got := cfg.EndInstant().Sub(cfg.Epoch).Seconds(); got != -1.5 {
		t.Errorf("expected -1.5 s, got %g", got)
	}
}
