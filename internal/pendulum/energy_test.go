package pendulum

import (
	"math"
	"testing"
)

func TestEnergyAtRest(t *testing.T) {
	c := newTestChain(t, 0.001, DefaultBobParams(), DefaultBobParams())

	if pe := c.PotentialEnergy(); math.Abs(pe) > 1e-12 {
		t.Errorf("expected zero potential energy hanging straight, got %g", pe)
	}
	if ke := c.KineticEnergy(); ke != 0 {
		t.Errorf("expected zero kinetic energy at rest, got %g", ke)
	}
}

func TestPotentialEnergy(t *testing.T) {
	c := newTestChain(t, 0.001,
		BobParams{Mass: 2, Length: 100, Angle: math.Pi / 2},
		BobParams{Mass: 3, Length: 50, Angle: math.Pi},
	)

	// Bob 1 sits 1 m above its lowest point, bob 2 sits 1 + 2*0.5 m above its own.
	expected := 2*Gravity*1 + 3*Gravity*2
	if pe := c.PotentialEnergy(); math.Abs(pe-expected) > 1e-9 {
		t.Errorf("expected %f, got %f", expected, pe)
	}
}

func TestKineticEnergy(t *testing.T) {
	tests := []struct {
		name     string
		bobs     []BobParams
		expected float64
	}{
		{
			"single bob",
			[]BobParams{{Mass: 2, Length: 200, Angle: 0.3, AngularVelocity: 3}},
			0.5 * 2 * (2 * 3) * (2 * 3),
		},
		{
			"rigid pair",
			[]BobParams{
				{Mass: 1, Length: 100, AngularVelocity: 2},
				{Mass: 1, Length: 100, AngularVelocity: 2},
			},
			0.5*1*2*2 + 0.5*1*4*4,
		},
		{
			"opposed pair",
			[]BobParams{
				{Mass: 1, Length: 100, AngularVelocity: 2},
				{Mass: 1, Length: 100, AngularVelocity: -2},
			},
			0.5 * 1 * 2 * 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestChain(t, 0.001, tt.bobs...)
			if ke := c.KineticEnergy(); math.Abs(ke-tt.expected) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.expected, ke)
			}
		})
	}
}
