// Package config loads and saves YAML scene files and builds scenes from
// them.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
	"github.com/RazorBest/Pendulum-Sandbox/internal/scene"
)

const (
	DefaultDt          = 0.001
	DefaultDuration    = 10.0
	DefaultSampleEvery = 10
	DefaultLogLevel    = "info"
	DefaultPivotX      = 400.0
	DefaultPivotY      = 100.0
)

var ErrInvalidConfig = errors.New("config: invalid scene")

type Config struct {
	Dt          float64          `yaml:"dt"`
	Duration    float64          `yaml:"duration"`
	Friction    float64          `yaml:"friction"`
	Scale       float64          `yaml:"scale"`
	Gravity     float64          `yaml:"gravity"`
	LogLevel    string           `yaml:"log_level"`
	SampleEvery int              `yaml:"sample_every"`
	Pendulums   []PendulumConfig `yaml:"pendulums"`
}

type PendulumConfig struct {
	ID    int         `yaml:"id"`
	Pivot PointConfig `yaml:"pivot"`
	// Dt overrides the scene time step for this pendulum when non-zero.
	Dt   float64     `yaml:"dt,omitempty"`
	Bobs []BobConfig `yaml:"bobs"`
}

type PointConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type BobConfig struct {
	ID       int     `yaml:"id"`
	Mass     float64 `yaml:"mass"`
	Length   float64 `yaml:"length"`
	Angle    float64 `yaml:"angle"`
	Velocity float64 `yaml:"velocity"`
}

func (b BobConfig) Params() pendulum.BobParams {
	return pendulum.BobParams{
		Mass:            b.Mass,
		Length:          b.Length,
		Angle:           b.Angle,
		AngularVelocity: b.Velocity,
	}
}

// DefaultConfig is a single default bob swinging from the default pivot.
func DefaultConfig() *Config {
	return &Config{
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		Scale:       pendulum.DefaultScale,
		Gravity:     pendulum.Gravity,
		LogLevel:    DefaultLogLevel,
		SampleEvery: DefaultSampleEvery,
		Pendulums: []PendulumConfig{{
			ID:    1,
			Pivot: PointConfig{X: DefaultPivotX, Y: DefaultPivotY},
			Bobs: []BobConfig{{
				ID:     1,
				Mass:   pendulum.DefaultMass,
				Length: pendulum.DefaultLength,
				Angle:  1.0,
			}},
		}},
	}
}

// Load reads a scene file. Fields missing from the file keep their
// defaults; a file that lists pendulums replaces the default pendulum.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Pendulums = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Pendulums = make([]PendulumConfig, len(c.Pendulums))
	for i, p := range c.Pendulums {
		p.Bobs = append([]BobConfig(nil), p.Bobs...)
		out.Pendulums[i] = p
	}
	return &out
}

func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("dt %v: %w", c.Dt, ErrInvalidConfig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration %v: %w", c.Duration, ErrInvalidConfig)
	}
	if c.Friction < 0 {
		return fmt.Errorf("friction %v: %w", c.Friction, ErrInvalidConfig)
	}
	if !(c.Scale > 0) {
		return fmt.Errorf("scale %v: %w", c.Scale, ErrInvalidConfig)
	}
	if c.SampleEvery < 1 {
		return fmt.Errorf("sample_every %d: %w", c.SampleEvery, ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, ErrInvalidConfig)
	}

	seen := make(map[int]bool, len(c.Pendulums))
	for _, p := range c.Pendulums {
		if seen[p.ID] {
			return fmt.Errorf("pendulum %d: duplicate id: %w", p.ID, ErrInvalidConfig)
		}
		seen[p.ID] = true
		if p.Dt < 0 {
			return fmt.Errorf("pendulum %d: dt %v: %w", p.ID, p.Dt, ErrInvalidConfig)
		}

		bobs := make(map[int]bool, len(p.Bobs))
		for _, b := range p.Bobs {
			if bobs[b.ID] {
				return fmt.Errorf("pendulum %d bob %d: duplicate id: %w", p.ID, b.ID, ErrInvalidConfig)
			}
			bobs[b.ID] = true
			if err := b.Params().Validate(); err != nil {
				return fmt.Errorf("pendulum %d bob %d: %w: %w", p.ID, b.ID, ErrInvalidConfig, err)
			}
		}
	}
	return nil
}

// UniformDt reports an error when a pendulum overrides the scene time step
// with a different value. Headless runs count steps, so a duration only maps
// to one step count when every pendulum shares the scene dt.
func (c *Config) UniformDt() error {
	for _, p := range c.Pendulums {
		if p.Dt > 0 && p.Dt != c.Dt {
			return fmt.Errorf("pendulum %d: dt %v differs from scene dt %v: %w",
				p.ID, p.Dt, c.Dt, ErrInvalidConfig)
		}
	}
	return nil
}

// Build creates a stopped scene holding every configured pendulum and
// records its initial state as the reset checkpoint.
func (c *Config) Build(logger *log.Logger, opts ...scene.Option) (*scene.Scene, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s := scene.New(append([]scene.Option{scene.WithLogger(logger)}, opts...)...)
	if err := s.SetFriction(c.Friction); err != nil {
		return nil, err
	}

	for _, p := range c.Pendulums {
		dt := c.Dt
		if p.Dt > 0 {
			dt = p.Dt
		}
		if err := s.AddPendulum(p.ID, p.Pivot.X, p.Pivot.Y, dt); err != nil {
			return nil, err
		}
		if err := s.SetParam(p.ID, "scale", c.Scale); err != nil {
			return nil, err
		}
		if err := s.SetParam(p.ID, "gravity", c.Gravity); err != nil {
			return nil, err
		}
		for _, b := range p.Bobs {
			if err := s.AddBob(p.ID, b.ID, b.Params()); err != nil {
				return nil, err
			}
		}
	}

	s.Checkpoint()
	return s, nil
}

// BobCount is the number of bobs across every pendulum.
func (c *Config) BobCount() int {
	n := 0
	for _, p := range c.Pendulums {
		n += len(p.Bobs)
	}
	return n
}
