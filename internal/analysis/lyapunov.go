package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
)

var ErrEmptyChain = errors.New("analysis: chain has no bobs")

// LyapunovExponent estimates the largest Lyapunov exponent (1/s) of the chain
// built by newChain. A second chain starts with its first angle shifted by
// perturbation; after every step the separation in (angle, velocity) space is
// logged and the second chain pulled back to distance perturbation.
func LyapunovExponent(newChain func() (*pendulum.Chain, error), friction, perturbation float64, steps int) (float64, error) {
	if !(perturbation > 0) || steps < 1 {
		return 0, fmt.Errorf("%w: perturbation %v, steps %d", pendulum.ErrInvalidParameter, perturbation, steps)
	}

	ref, err := newChain()
	if err != nil {
		return 0, err
	}
	shadow, err := newChain()
	if err != nil {
		return 0, err
	}
	if ref.Len() == 0 || ref.Len() != shadow.Len() {
		return 0, ErrEmptyChain
	}

	first := shadow.Bobs()[0]
	if err := shadow.SetBob(first.ID, pendulum.BobUpdate{Angle: pendulum.Float(first.Angle + perturbation)}); err != nil {
		return 0, err
	}

	sumLog := 0.0
	for i := 0; i < steps; i++ {
		if err := ref.Advance(friction); err != nil {
			return 0, err
		}
		if err := shadow.Advance(friction); err != nil {
			return 0, err
		}

		a, b := ref.Bobs(), shadow.Bobs()
		sep := 0.0
		for j := range a {
			da := b[j].Angle - a[j].Angle
			dv := b[j].AngularVelocity - a[j].AngularVelocity
			sep += da*da + dv*dv
		}
		sep = math.Sqrt(sep)
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / perturbation)

		scale := perturbation / sep
		for j := range a {
			angle := a[j].Angle + (b[j].Angle-a[j].Angle)*scale
			vel := a[j].AngularVelocity + (b[j].AngularVelocity-a[j].AngularVelocity)*scale
			if err := shadow.SetBob(b[j].ID, pendulum.BobUpdate{Angle: &angle, AngularVelocity: &vel}); err != nil {
				return 0, err
			}
		}
	}

	return sumLog / (float64(steps) * ref.TimeStep()), nil
}
