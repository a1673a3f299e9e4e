package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/RazorBest/Pendulum-Sandbox/internal/metrics"
	"github.com/RazorBest/Pendulum-Sandbox/internal/scene"
)

type ExportData struct {
	Meta      RunMetadata     `json:"meta"`
	Energy    []EnergyPoint   `json:"energy"`
	Pendulums []PendulumState `json:"pendulums"`
}

type EnergyPoint struct {
	Tick      int     `json:"tick"`
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
	Total     float64 `json:"total"`
}

type PendulumState struct {
	ID    int        `json:"id"`
	Pivot [2]float64 `json:"pivot"`
	Bobs  []BobState `json:"bobs"`
	Fault string     `json:"fault,omitempty"`
}

type BobState struct {
	ID       int        `json:"id"`
	Mass     float64    `json:"mass"`
	Length   float64    `json:"length"`
	Angle    float64    `json:"angle"`
	Velocity float64    `json:"velocity"`
	Position [2]float64 `json:"position"`
}

// NewExportData assembles a run summary with the final scene state.
func NewExportData(meta RunMetadata, samples []metrics.Sample, snaps []scene.ChainSnapshot) ExportData {
	data := ExportData{
		Meta:      meta,
		Energy:    make([]EnergyPoint, len(samples)),
		Pendulums: make([]PendulumState, len(snaps)),
	}
	for i, s := range samples {
		data.Energy[i] = EnergyPoint{Tick: s.Tick, Kinetic: s.Kinetic, Potential: s.Potential, Total: s.Total()}
	}
	for i, c := range snaps {
		p := PendulumState{
			ID:    c.ID,
			Pivot: [2]float64{c.Pivot.X, c.Pivot.Y},
			Bobs:  make([]BobState, len(c.Bobs)),
		}
		if c.Fault != nil {
			p.Fault = c.Fault.Error()
		}
		for j, b := range c.Bobs {
			pt := c.Points[j+1]
			p.Bobs[j] = BobState{
				ID:       b.ID,
				Mass:     b.Mass,
				Length:   b.Length,
				Angle:    b.Angle,
				Velocity: b.AngularVelocity,
				Position: [2]float64{pt.X, pt.Y},
			}
		}
		data.Pendulums[i] = p
	}
	return data
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
