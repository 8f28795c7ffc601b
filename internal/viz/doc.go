// Package viz is the terminal front end of blocksim, built on Bubble Tea.
//
//   - [Model]: steps a simulator in real time and plots the watched signals
//   - [NewPicker]: menu of built-in projects that opens a live view
//   - [Canvas]: Braille canvas used for the phase view
//
// PID gains of any tunable block can be adjusted while the simulation
// runs, and manual input blocks can be nudged from the keyboard.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart with the initial gains
//	Tab   - Select gain, Up/Down to change it
//	M     - Select manual input, Left/Right to nudge it
//	S     - Cycle plotted signal
//	P     - Phase view
//	T     - Cycle color themes
//	?     - Help overlay
package viz
