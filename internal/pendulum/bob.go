package pendulum

import "math"

const (
	DefaultMass   = 10.0
	DefaultLength = 100.0
	DefaultScale  = 100.0
	Gravity       = 9.8

	// MaxAngularVelocity bounds every bob's angular velocity (rad/s) before
	// the system is built.
	MaxAngularVelocity = 100.0
)

// Bob is a point mass at the end of one rod. Length is in caller units.
type Bob struct {
	ID              int
	Mass            float64
	Length          float64
	Angle           float64
	AngularVelocity float64
}

// BobParams holds the initial values of a new bob.
type BobParams struct {
	Mass            float64
	Length          float64
	Angle           float64
	AngularVelocity float64
}

// DefaultBobParams returns a 10 kg bob on a 100 unit rod hanging at rest.
func DefaultBobParams() BobParams {
	return BobParams{
		Mass:   DefaultMass,
		Length: DefaultLength,
	}
}

// BobUpdate is a partial bob update; nil fields keep their current value.
type BobUpdate struct {
	Mass            *float64
	Length          *float64
	Angle           *float64
	AngularVelocity *float64
}

// Float returns a pointer to v, for building a BobUpdate inline.
func Float(v float64) *float64 { return &v }

// Validate reports ErrInvalidParameter for a non-positive mass or length, or a
// non-finite angle or angular velocity.
func (p BobParams) Validate() error {
	if !positive(p.Mass) || !positive(p.Length) {
		return ErrInvalidParameter
	}
	if !finite(p.Angle) || !finite(p.AngularVelocity) {
		return ErrInvalidParameter
	}
	return nil
}

func (u BobUpdate) validate() error {
	if u.Mass != nil && !positive(*u.Mass) {
		return ErrInvalidParameter
	}
	if u.Length != nil && !positive(*u.Length) {
		return ErrInvalidParameter
	}
	if u.Angle != nil && !finite(*u.Angle) {
		return ErrInvalidParameter
	}
	if u.AngularVelocity != nil && !finite(*u.AngularVelocity) {
		return ErrInvalidParameter
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && finite(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
