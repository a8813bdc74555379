// Package viz shows a running stipple simulation in the terminal.
//
// Particles are drawn on a Braille [Canvas] (2x4 dots per cell) and the
// live [Model] is a Bubble Tea program that steps the simulation between
// frames.
//
// # Key Bindings
//
//	Space - Pause/Resume stepping
//	N     - Jump to the next frame
//	R     - Re-scatter particles from the seed
//	+/-   - More or fewer timesteps per tick
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
package viz
