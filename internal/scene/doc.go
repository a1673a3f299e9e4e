// Package scene runs many independent pendulum chains side by side.
//
// A [Scene] owns every chain, the shared friction coefficient and one
// fixed-interval scheduler per chain. All chain state sits behind a single
// read-write lock: a step holds the write lock from the moment queued edits
// are applied until every chain has advanced, and readers ([Scene.Snapshot],
// [Scene.HitTest], [Scene.Energies]) take the read lock.
//
// While the scene is running, structural edits (adding or removing
// pendulums and bobs) are queued and applied together at the start of the
// next step, never in the middle of one. A chain that diverges numerically is
// faulted and skipped; its siblings keep running and readers keep seeing its
// last good state.
package scene
