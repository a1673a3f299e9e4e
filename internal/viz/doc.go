// Package viz draws a running scene in the terminal.
//
// The live view is a Bubble Tea program: [Model] advances the scene on a
// 60 Hz frame tick, draws every pendulum on a Braille [Canvas] and shows
// energies, drift and the tunable parameters of the selected pendulum next
// to it. [Picker] is a small preset menu that launches the live view.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	S     - Start/Stop (stopped scenes apply edits immediately)
//	.     - Single step
//	R     - Reset to checkpoint
//	Tab   - Select next pendulum
//	+/-   - Friction up/down
//	P     - Cycle tunable parameter
//	↑/↓   - Tune selected parameter (±5%)
//	A/X   - Add/remove a bob on the selected pendulum
//	N/D   - New/delete pendulum
//	F     - Fit view
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	E     - Export the current frame as SVG
//	?     - Show help overlay
//
// The mouse picks pendulums and drags pivots.
package viz
