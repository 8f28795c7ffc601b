// Package block defines the contract every unit of computation satisfies so
// the simulation kernel can schedule it.
//
// A block owns named input and output ports, an optional set of state
// variables, and three lifecycle methods:
//
//   - [Block.Initialize]: seed outputs (and state) from whatever inputs are
//     already known. Sizing may be deferred until the first real input.
//   - [Block.OutputUpdate]: recompute outputs from current inputs and state.
//     Never touches state.
//   - [Block.StateUpdate]: compute the next state into the pending buffer.
//     Never touches outputs.
//
// The kernel commits pending state with [State.Commit] once every block of an
// activation has run its state update.
//
// # Embedding
//
// Concrete blocks embed [Base], which supplies ports, state buffers, shape
// freezing and the default traits (not a source, direct feedthrough, no
// sample time, no-op state update):
//
//	type Gain struct {
//		block.Base
//		k *mat.Dense
//	}
//
//	func NewGain(name string, k *mat.Dense) *Gain {
//		g := &Gain{Base: block.NewBase(name), k: k}
//		g.Inputs().Declare("in")
//		g.Outputs().Declare("out")
//		return g
//	}
package block
