package pendulum

import "math"

// PotentialEnergy returns Σ m·g·h in joules, where h is each bob's height in
// metres above the lowest point it can reach.
func (c *Chain) PotentialEnergy() float64 {
	var energy, y, total float64
	for _, b := range c.bobs {
		l := b.Length / c.scale
		y += math.Cos(b.Angle) * l
		total += l
		energy += b.Mass * c.gravity * (total - y)
	}
	return energy
}

// KineticEnergy returns Σ m·v²/2 in joules. Each bob's velocity accumulates
// the contributions of every rod above it.
func (c *Chain) KineticEnergy() float64 {
	var energy, vx, vy float64
	for _, b := range c.bobs {
		l := b.Length / c.scale
		sin, cos := math.Sincos(b.Angle)
		vx += l * b.AngularVelocity * cos
		vy += l * b.AngularVelocity * sin
		energy += b.Mass * (vx*vx + vy*vy) / 2
	}
	return energy
}

// Energy is the total mechanical energy.
func (c *Chain) Energy() float64 {
	return c.PotentialEnergy() + c.KineticEnergy()
}
