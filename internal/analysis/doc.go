// Package analysis characterizes recorded and simulated pendulum motion.
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillation frequency of a bob
//   - [PhasePortrait]: angle against angular velocity for one bob
//   - [PoincareSection]: one bob sampled whenever another swings through the vertical
//   - [LyapunovExponent]: separation growth of two nearly identical chains
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic motion:
//
//	lambda, err := analysis.LyapunovExponent(newChain, friction, 1e-8, 20000)
//	if err == nil && lambda > 0 {
//	    // chaotic
//	}
package analysis
