// Package viz renders the live plant dashboard in the terminal.
//
// The dashboard is a Bubble Tea program fed by engine snapshots:
//
//   - [Canvas]: Braille-based pixel canvas drawing the floater loop
//   - power history chart rendered with asciigraph
//   - per-floater fill bars and drivetrain/generator readouts
//
// # Key Bindings
//
//	Space - Pause/Resume the simulation
//	R     - Reset to the configured initial state
//	M     - Toggle generator regulation mode
//	N     - Toggle nanobubble drag reduction
//	T     - Toggle thermal buoyancy boost
//	+/-   - Add/remove a floater
//	Q     - Quit
package viz
