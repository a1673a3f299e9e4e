package pendulum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Accelerations returns the angular acceleration of every bob for the current
// state under gravity and the given friction coefficient.
//
// Angular velocities outside ±MaxAngularVelocity are clamped in place before
// the system is built. The unknowns are ordered as n angular accelerations
// followed by n rod reaction forces; only the accelerations are returned. The
// returned slice is owned by the chain and is overwritten by the next call.
func (c *Chain) Accelerations(friction float64) ([]float64, error) {
	n := len(c.bobs)
	if n == 0 {
		return c.acc, nil
	}

	c.clampVelocities()

	for i := range c.bobs {
		b := &c.bobs[i]
		l := b.Length / c.scale
		w2 := b.AngularVelocity * b.AngularVelocity
		c.lc[i] = l * math.Cos(b.Angle)
		c.ls[i] = l * math.Sin(b.Angle)
		c.lcv[i] = c.lc[i] * w2
		c.lsv[i] = c.ls[i] * w2
	}

	c.a.Zero()
	for i := 0; i < n; i++ {
		b := &c.bobs[i]
		rx, ry := 2*i, 2*i+1

		for j := 0; j <= i; j++ {
			c.a.Set(rx, j, -c.lc[j])
			c.a.Set(ry, j, -c.ls[j])
		}

		sin, cos := math.Sincos(b.Angle)
		fx := math.Abs(b.AngularVelocity) * friction * cos
		fy := math.Abs(b.AngularVelocity) * friction * sin
		if b.AngularVelocity < 0 {
			fx, fy = -fx, -fy
		}

		bx := -c.lsv[i] + fx
		by := c.lcv[i] + fy
		if i > 0 {
			bx += c.b.AtVec(rx - 2)
			by += c.b.AtVec(ry - 2)
		} else {
			by += c.gravity
		}
		c.b.SetVec(rx, bx)
		c.b.SetVec(ry, by)

		c.a.Set(rx, n+i, -sin/b.Mass)
		c.a.Set(ry, n+i, cos/b.Mass)
		if i == n-1 {
			continue
		}
		nsin, ncos := math.Sincos(c.bobs[i+1].Angle)
		c.a.Set(rx, n+i+1, nsin/b.Mass)
		c.a.Set(ry, n+i+1, -ncos/b.Mass)
	}

	if !denseFinite(c.a) || !vecFinite(c.b) {
		return nil, fmt.Errorf("solve: %w", ErrNumericDivergence)
	}

	if err := c.sol.SolveVec(c.a, c.b); err != nil {
		// gonum reports both exactly singular and ill-conditioned systems here.
		return nil, fmt.Errorf("solve: %w", ErrSingularConfiguration)
	}
	if !vecFinite(c.sol) {
		return nil, fmt.Errorf("solve: %w", ErrNumericDivergence)
	}

	for i := 0; i < n; i++ {
		c.acc[i] = c.sol.AtVec(i)
	}
	return c.acc, nil
}

func (c *Chain) clampVelocities() {
	for i := range c.bobs {
		v := &c.bobs[i].AngularVelocity
		if *v > MaxAngularVelocity {
			*v = MaxAngularVelocity
		} else if *v < -MaxAngularVelocity {
			*v = -MaxAngularVelocity
		}
	}
}

func denseFinite(m *mat.Dense) bool {
	for _, v := range m.RawMatrix().Data {
		if !finite(v) {
			return false
		}
	}
	return true
}

func vecFinite(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		if !finite(v.AtVec(i)) {
			return false
		}
	}
	return true
}
