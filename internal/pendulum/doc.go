// Package pendulum implements the dynamics of planar multi-link pendulums.
//
// A [Chain] is an ordered list of bobs hanging from a pivot: bob 0 hangs from
// the pivot, bob i from bob i-1. Each rod is rigid and massless and each bob
// is a point mass. Every step the chain builds a 2n x 2n linear system whose
// unknowns are the n angular accelerations and the n rod reaction forces,
// solves it, and advances with semi-implicit Euler:
//
//	acc, err := chain.Accelerations(friction)
//	err = chain.Advance(friction)
//
// Lengths and positions are expressed in caller units (screen pixels in the
// sandbox); the solver works in metres using the chain's scale, so a rod of
// length 100 with the default scale is one metre long.
//
// # Thread Safety
//
// Chain values are NOT safe for concurrent use. The scene package guards
// every chain with a lock and only touches it from one goroutine at a time.
package pendulum
