// Package viz renders a running simulation in the terminal.
//
// The package implements a live view using the Bubble Tea framework:
//
//   - [Model]: live particle view with a stats sidebar
//   - [Canvas]: Braille-based pixel canvas for high-fidelity rendering
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to the initial configuration
//	E     - Cycle the scatter field (density, pressure, energy)
//	Q     - Quit
package viz
