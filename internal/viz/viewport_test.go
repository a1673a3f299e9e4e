package viz

import (
	"math"
	"testing"

	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
	"github.com/RazorBest/Pendulum-Sandbox/internal/scene"
)

func TestViewportRoundTrip(t *testing.T) {
	v := Viewport{CenterX: 100, CenterY: 50, Scale: 2.5, W: 160, H: 96}

	x, y := v.ToCanvas(pendulum.Point{X: 100, Y: 50})
	if x != 80 || y != 48 {
		t.Errorf("expected center at (80, 48), got (%d, %d)", x, y)
	}

	p := v.ToScene(100, 20)
	if x, y := v.ToCanvas(p); x != 100 || y != 20 {
		t.Errorf("round trip moved (100, 20) to (%d, %d)", x, y)
	}
	if r := v.Radius(0.1); r != 1 {
		t.Errorf("expected minimum radius 1, got %d", r)
	}
}

func TestFitViewport(t *testing.T) {
	s := scene.New()
	s.AddPendulum(1, 400, 100, 0.001)
	s.AddBob(1, 1, pendulum.BobParams{Mass: 1, Length: 100})
	s.AddBob(1, 2, pendulum.BobParams{Mass: 1, Length: 100})

	v := FitViewport(s.Snapshot(), 160, 96)
	if v.CenterX != 400 || v.CenterY != 100 {
		t.Errorf("expected view centered on the pivot, got (%f, %f)", v.CenterX, v.CenterY)
	}

	reach := 200 + pendulum.PivotRadius + pendulum.BobRadius
	for _, p := range []pendulum.Point{{X: 400, Y: 100 + reach}, {X: 400 - reach, Y: 100}} {
		x, y := v.ToCanvas(p)
		if x < 0 || x > 160 || y < 0 || y > 96 {
			t.Errorf("point %+v off canvas at (%d, %d)", p, x, y)
		}
	}

	empty := FitViewport(nil, 10, 10)
	if empty.Scale != 1 || math.IsNaN(empty.CenterX) {
		t.Errorf("unexpected empty viewport %+v", empty)
	}
}
