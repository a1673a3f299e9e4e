package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Scale != pendulum.DefaultScale {
		t.Errorf("expected scale %v, got %v", pendulum.DefaultScale, cfg.Scale)
	}
	if len(cfg.Pendulums) != 1 || len(cfg.Pendulums[0].Bobs) != 1 {
		t.Fatalf("expected one pendulum with one bob, got %+v", cfg.Pendulums)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("double")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.BobCount() != 2 {
		t.Errorf("expected 2 bobs, got %d", cfg.BobCount())
	}

	cfg.Pendulums[0].Bobs[0].Angle = 0
	if Presets["double"].Pendulums[0].Bobs[0].Angle != 1.5 {
		t.Error("expected GetPreset to return a copy")
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for unknown preset")
	}
}

func TestListPresets(t *testing.T) {
	expected := []string{"chaos", "damped", "double", "single", "triple"}
	names := ListPresets()
	if len(names) != len(expected) {
		t.Fatalf("expected %d presets, got %d", len(expected), len(names))
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("expected %s at %d, got %s", name, i, names[i])
		}
	}
}

func TestPresetsValid(t *testing.T) {
	for name, cfg := range Presets {
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative friction", func(c *Config) { c.Friction = -1 }},
		{"zero scale", func(c *Config) { c.Scale = 0 }},
		{"zero sample period", func(c *Config) { c.SampleEvery = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"duplicate pendulum", func(c *Config) { c.Pendulums = append(c.Pendulums, c.Pendulums[0]) }},
		{"duplicate bob", func(c *Config) {
			c.Pendulums[0].Bobs = append(c.Pendulums[0].Bobs, c.Pendulums[0].Bobs[0])
		}},
		{"zero mass", func(c *Config) { c.Pendulums[0].Bobs[0].Mass = 0 }},
		{"negative length", func(c *Config) { c.Pendulums[0].Bobs[0].Length = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestUniformDt(t *testing.T) {
	tests := []struct {
		name    string
		dt      float64
		wantErr bool
	}{
		{"inherits scene dt", 0, false},
		{"repeats scene dt", DefaultDt, false},
		{"overrides scene dt", DefaultDt * 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Pendulums[0].Dt = tt.dt
			err := cfg.UniformDt()
			if tt.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	cfg := GetPreset("triple")
	cfg.Friction = 0.1

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Friction != 0.1 || loaded.BobCount() != 3 {
		t.Errorf("expected friction 0.1 and 3 bobs, got %v and %d", loaded.Friction, loaded.BobCount())
	}
	if loaded.Pendulums[0].Bobs[2].Angle != -0.2 {
		t.Errorf("expected angle -0.2, got %v", loaded.Pendulums[0].Bobs[2].Angle)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	data := []byte(`
friction: 0.2
pendulums:
  - id: 3
    pivot: {x: 10, y: 20}
    bobs:
      - {id: 1, mass: 2, length: 50, angle: 0.4}
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dt != DefaultDt || cfg.Gravity != pendulum.Gravity {
		t.Errorf("expected default dt and gravity, got %v and %v", cfg.Dt, cfg.Gravity)
	}
	if len(cfg.Pendulums) != 1 || cfg.Pendulums[0].ID != 3 {
		t.Errorf("expected only pendulum 3, got %+v", cfg.Pendulums)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	os.WriteFile(path, []byte("dt: -1\n"), 0644)
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	cfg := GetPreset("damped")
	s, err := cfg.Build(nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if s.Friction() != 0.05 {
		t.Errorf("expected friction 0.05, got %v", s.Friction())
	}
	bobs, err := s.Bobs(1)
	if err != nil {
		t.Fatalf("bobs: %v", err)
	}
	if len(bobs) != 2 || bobs[0].Angle != 2.0 {
		t.Errorf("unexpected bobs %+v", bobs)
	}

	for i := 0; i < 10; i++ {
		s.Step()
	}
	s.Reset()
	bobs, _ = s.Bobs(1)
	if bobs[0].Angle != 2.0 || bobs[0].AngularVelocity != 0 {
		t.Errorf("expected reset to the built state, got %+v", bobs[0])
	}
}
