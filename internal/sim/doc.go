// Package sim is the discrete-time simulation kernel.
//
// A [Model] owns blocks and point-to-point connections and derives two
// orders from them: the order in which blocks compute outputs within one
// instant, and the order in which stateful blocks compute their next state.
// The [Simulator] drives a model over a fixed base step, grouping blocks by
// sample time into [Task]s dispatched by a [Scheduler].
//
// # Execution order
//
// Blocks fall into three categories:
//
//   - A: stateful blocks without direct feedthrough (unit delays, forward
//     integrators). Their output depends only on held state, so they emit
//     first and break every feedback loop they sit on.
//   - B: sources.
//   - C: everything else, sorted topologically along edges between two
//     C blocks whose destination reads its input in the same instant.
//
// The output order is A, then B, then C. A cycle left in C is an algebraic
// loop and is reported as [*AlgebraicLoopError]. Ties are broken by block
// insertion order, so orders are identical across runs and platforms.
//
// # Stepping
//
// Each activation of a task propagates the producers' current outputs into
// a block's inputs right before the block runs, calls OutputUpdate over the
// task's share of the output order, then StateUpdate over its stateful
// blocks, and finally commits the pending state of those blocks.
//
// # Usage
//
//	m := sim.NewModel("demo")
//	m.AddBlock(step)
//	m.AddBlock(integ)
//	m.Connect("step", "out", "integ", "in")
//
//	s, err := sim.New(m, sim.Config{Dt: 0.1, T: 1, Solver: "fixed", Clock: "internal"})
//	log, err := s.Run(ctx)
//	ys := log.Scalars("integ.outputs.out")
package sim
