package config

import (
	"fmt"
	"slices"
)

var Presets = map[string]*Config{
	"single": preset(0, DefaultPivotX, DefaultPivotY,
		BobConfig{ID: 1, Mass: 10, Length: 150, Angle: 1.0},
	),
	"double": preset(0, DefaultPivotX, DefaultPivotY,
		BobConfig{ID: 1, Mass: 10, Length: 100, Angle: 1.5},
		BobConfig{ID: 2, Mass: 10, Length: 100, Angle: 1.5},
	),
	"triple": preset(0, DefaultPivotX, DefaultPivotY,
		BobConfig{ID: 1, Mass: 10, Length: 80, Angle: 0.5},
		BobConfig{ID: 2, Mass: 10, Length: 80, Angle: 0.3},
		BobConfig{ID: 3, Mass: 10, Length: 80, Angle: -0.2},
	),
	"chaos": preset(0, DefaultPivotX, DefaultPivotY,
		BobConfig{ID: 1, Mass: 10, Length: 70, Angle: 3.0},
		BobConfig{ID: 2, Mass: 8, Length: 70, Angle: 3.0},
		BobConfig{ID: 3, Mass: 6, Length: 70, Angle: 2.5},
		BobConfig{ID: 4, Mass: 4, Length: 70, Angle: 2.0, Velocity: 1},
	),
	"damped": preset(0.05, DefaultPivotX, DefaultPivotY,
		BobConfig{ID: 1, Mass: 10, Length: 100, Angle: 2.0},
		BobConfig{ID: 2, Mass: 10, Length: 100, Angle: 1.0},
	),
}

func preset(friction, x, y float64, bobs ...BobConfig) *Config {
	cfg := DefaultConfig()
	cfg.Friction = friction
	cfg.Pendulums = []PendulumConfig{{
		ID:    1,
		Pivot: PointConfig{X: x, Y: y},
		Bobs:  bobs,
	}}
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Describe summarizes a preset for listings.
func Describe(cfg *Config) string {
	if cfg == nil || len(cfg.Pendulums) == 0 {
		return "empty scene"
	}
	masses := 0.0
	for _, p := range cfg.Pendulums {
		for _, b := range p.Bobs {
			masses += b.Mass
		}
	}
	return fmt.Sprintf("%d pendulum(s), %d bobs, %.0f kg total, friction %g",
		len(cfg.Pendulums), cfg.BobCount(), masses, cfg.Friction)
}
