package pendulum

import (
	"errors"
	"fmt"
)

// Advance performs one fixed step of semi-implicit Euler:
//
//	ω += a·dt
//	θ += ω·dt   (with the updated ω)
//
// When the system is singular the state is left as it was and
// ErrSingularConfiguration is returned. When NaN or Inf shows up the state is
// rolled back to the last good values and the chain is faulted: every further
// call returns the same error until Reset.
func (c *Chain) Advance(friction float64) error {
	if c.fault != nil {
		return c.fault
	}
	if len(c.bobs) == 0 {
		return nil
	}

	for i, b := range c.bobs {
		c.prevAng[i] = b.Angle
		c.prevVel[i] = b.AngularVelocity
	}

	acc, err := c.Accelerations(friction)
	if err != nil {
		c.restore()
		if errors.Is(err, ErrNumericDivergence) {
			c.fault = err
		}
		return err
	}

	dt := c.dt
	for i := range c.bobs {
		b := &c.bobs[i]
		b.AngularVelocity += acc[i] * dt
		b.Angle += b.AngularVelocity * dt
	}

	for _, b := range c.bobs {
		if !finite(b.Angle) || !finite(b.AngularVelocity) {
			c.restore()
			c.fault = fmt.Errorf("integrate: %w", ErrNumericDivergence)
			return c.fault
		}
	}
	return nil
}

func (c *Chain) restore() {
	for i := range c.bobs {
		c.bobs[i].Angle = c.prevAng[i]
		c.bobs[i].AngularVelocity = c.prevVel[i]
	}
}

// Fault returns the error that stopped the chain, or nil.
func (c *Chain) Fault() error { return c.fault }

func (c *Chain) Faulted() bool { return c.fault != nil }

// Checkpoint records the current angles and velocities as the state Reset
// returns to.
func (c *Chain) Checkpoint() {
	c.checkpoint = make(map[int]Bob, len(c.bobs))
	for _, b := range c.bobs {
		c.checkpoint[b.ID] = b
	}
}

// Reset clears a fault. Bobs present in the last checkpoint get their
// checkpointed angle and velocity back; all others are brought to rest at
// their current angle.
func (c *Chain) Reset() {
	c.fault = nil
	for i := range c.bobs {
		b := &c.bobs[i]
		if saved, ok := c.checkpoint[b.ID]; ok {
			b.Angle = saved.Angle
			b.AngularVelocity = saved.AngularVelocity
			continue
		}
		if !finite(b.Angle) {
			b.Angle = 0
		}
		b.AngularVelocity = 0
	}
}
