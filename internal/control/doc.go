// Package control provides feedback controller blocks.
//
//   - [PID]: discrete PID with selectable mode (P, PI, PD, ID, PID),
//     output saturation and integral clamping
//   - [StateFeedback]: u = G r - K x
//   - [Manual]: a source whose value is set from outside the simulation
//
// # Usage
//
//	pid, _ := control.NewPID("pid", "PI", control.PIDGains{
//		Kp: signal.Scalar(2),
//		Ki: signal.Scalar(0.5),
//	})
//	model.AddBlock(pid)
//	model.Connect("error", "out", "pid", "e")
//
// Blocks implementing [Tunable] support live tuning.
package control
