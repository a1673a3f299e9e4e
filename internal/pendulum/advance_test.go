package pendulum

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestAdvanceSemiImplicitOrder(t *testing.T) {
	c := newTestChain(t, 0.01, BobParams{Mass: 1, Length: 100, Angle: 0.4, AngularVelocity: 0.5})

	acc, err := c.Accelerations(0)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	a := acc[0]

	if err := c.Advance(0); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	w := 0.5 + a*0.01
	theta := 0.4 + w*0.01
	b, _ := c.Bob(1)
	if b.AngularVelocity != w {
		t.Errorf("expected velocity %v, got %v", w, b.AngularVelocity)
	}
	if b.Angle != theta {
		t.Errorf("expected angle %v (updated velocity), got %v", theta, b.Angle)
	}
}

func TestEnergyBound(t *testing.T) {
	c := newTestChain(t, 1e-4,
		BobParams{Mass: 1, Length: 100, Angle: 0.5},
		BobParams{Mass: 1, Length: 100, Angle: 0.3},
		BobParams{Mass: 1, Length: 100, Angle: -0.2},
	)

	initial := c.Energy()
	maxDrift := 0.0
	for i := 0; i < 30000; i++ {
		if err := c.Advance(0); err != nil {
			t.Fatalf("advance %d failed: %v", i, err)
		}
		drift := math.Abs(c.Energy()-initial) / initial
		maxDrift = math.Max(maxDrift, drift)
	}

	if maxDrift > 0.01 {
		t.Errorf("energy drift %.4f%% exceeds 1%%", maxDrift*100)
	}
}

func TestFrictionDissipates(t *testing.T) {
	c := newTestChain(t, 1e-3,
		BobParams{Mass: 1, Length: 100, Angle: 1.0},
		BobParams{Mass: 1, Length: 100, Angle: 0.5},
	)

	initial := c.Energy()
	for i := 0; i < 5000; i++ {
		if err := c.Advance(0.5); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	if final := c.Energy(); final >= initial*0.9 {
		t.Errorf("expected friction to remove energy: initial %f, final %f", initial, final)
	}
}

func TestDeterminism(t *testing.T) {
	params := []BobParams{
		{Mass: 3, Length: 120, Angle: 2.0, AngularVelocity: 1},
		{Mass: 1, Length: 80, Angle: -1.0},
		{Mass: 2, Length: 60, Angle: 0.5, AngularVelocity: -3},
	}
	a := newTestChain(t, 1e-3, params...)
	b := newTestChain(t, 1e-3, params...)

	for i := 0; i < 2000; i++ {
		if err := a.Advance(0.1); err != nil {
			t.Fatalf("advance a: %v", err)
		}
		if err := b.Advance(0.1); err != nil {
			t.Fatalf("advance b: %v", err)
		}
		if !reflect.DeepEqual(a.Bobs(), b.Bobs()) {
			t.Fatalf("step %d: chains diverged\n%+v\n%+v", i, a.Bobs(), b.Bobs())
		}
	}
}

func TestSingleBobPeriod(t *testing.T) {
	const dt = 1e-3
	c := newTestChain(t, dt, BobParams{Mass: 1, Length: 100, Angle: 0.1})

	x0, y0 := c.End()
	period := 2 * math.Pi * math.Sqrt(1/Gravity)
	steps := int(math.Round(period / dt))

	for i := 0; i < steps; i++ {
		if err := c.Advance(0); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	x1, y1 := c.End()
	if math.Abs(x1-x0) > 0.5 || math.Abs(y1-y0) > 0.5 {
		t.Errorf("expected to return to (%.3f, %.3f) after one period, got (%.3f, %.3f)", x0, y0, x1, y1)
	}

	// Half a period later the bob is on the other side.
	for i := 0; i < steps/2; i++ {
		c.Advance(0)
	}
	if xh, _ := c.End(); xh > -x0*0.9 {
		t.Errorf("expected bob near %.3f after half a period, got %.3f", -x0, xh)
	}
}

func TestAdvanceSingularSkipsStep(t *testing.T) {
	c := newTestChain(t, 1e-3, BobParams{Mass: 10, Length: 1, Angle: 0.2, AngularVelocity: 0.1})
	c.SetParam("scale", 1e300)
	before := c.Bobs()

	err := c.Advance(0)
	if !errors.Is(err, ErrSingularConfiguration) {
		t.Fatalf("expected ErrSingularConfiguration, got %v", err)
	}
	if c.Faulted() {
		t.Error("singular configuration must not fault the chain")
	}
	if !reflect.DeepEqual(before, c.Bobs()) {
		t.Errorf("state changed on skipped step: %+v", c.Bobs())
	}
}

func TestAdvanceDivergenceFaults(t *testing.T) {
	c := newTestChain(t, 1e-3,
		BobParams{Mass: 1, Length: 100, Angle: 0.2},
		BobParams{Mass: 1, Length: 1e10, Angle: 0.5},
	)
	c.Checkpoint()
	c.SetParam("scale", 1e-300)
	before := c.Bobs()

	if err := c.Advance(0); !errors.Is(err, ErrNumericDivergence) {
		t.Fatalf("expected ErrNumericDivergence, got %v", err)
	}
	if !c.Faulted() {
		t.Fatal("expected chain to be faulted")
	}
	if !reflect.DeepEqual(before, c.Bobs()) {
		t.Errorf("expected last good state to be kept, got %+v", c.Bobs())
	}
	if err := c.Advance(0); !errors.Is(err, ErrNumericDivergence) {
		t.Errorf("faulted chain advanced: %v", err)
	}

	c.SetParam("scale", DefaultScale)
	c.Reset()
	if c.Faulted() {
		t.Error("expected reset to clear the fault")
	}
	if err := c.RemoveBob(2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := c.Advance(0); err != nil {
		t.Errorf("expected chain to run after reset, got %v", err)
	}
}

func TestResetRestoresCheckpoint(t *testing.T) {
	c := newTestChain(t, 1e-3, BobParams{Mass: 1, Length: 100, Angle: 0.8})
	c.Checkpoint()
	for i := 0; i < 100; i++ {
		c.Advance(0)
	}
	c.AddBob(2, BobParams{Mass: 1, Length: 50, Angle: 0.3, AngularVelocity: 4})

	c.Reset()

	b1, _ := c.Bob(1)
	if b1.Angle != 0.8 || b1.AngularVelocity != 0 {
		t.Errorf("expected checkpointed bob 1, got %+v", b1)
	}
	b2, _ := c.Bob(2)
	if b2.Angle != 0.3 || b2.AngularVelocity != 0 {
		t.Errorf("expected bob 2 at rest at its angle, got %+v", b2)
	}
}
