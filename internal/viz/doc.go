// Package viz renders MEPS runs in the terminal.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [Model]: steps a MEPS run per frame and plots its progress
//   - [Canvas]: braille dot grid drawing a chain's distribution as a ring
//     or as bars
//   - a generator and preset picker, started by [RunInteractive]
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart the run from its start state
//	Tab   - Show the next chain of a batch
//	V     - Toggle ring and bar views
//	+/-   - Iterations per frame
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
