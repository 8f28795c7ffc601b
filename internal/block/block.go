package block

import (
	"fmt"
	"math"

	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// Block is a schedulable unit of computation.
type Block interface {
	Name() string
	Inputs() *Ports
	Outputs() *Ports
	State() *State

	// IsSource reports whether the block produces outputs without inputs.
	IsSource() bool

	// DirectFeedthrough reports whether outputs at time t depend on inputs at
	// time t.
	DirectFeedthrough() bool

	// SampleTime returns the block's period. ok is false when the block runs
	// at the base step.
	SampleTime() (st float64, ok bool)

	// Initialize prepares the block for a new run starting at t0. It is called
	// again on every re-run and must discard run-scoped state.
	Initialize(t0 float64) error
	OutputUpdate(t, dt float64) error
	StateUpdate(t, dt float64) error
}

// IsStateful reports whether b declares any state variable.
func IsStateful(b Block) bool {
	return b.State() != nil && b.State().Len() > 0
}

// Base carries the bookkeeping shared by every block. Embed it and override
// the trait methods that differ.
type Base struct {
	name       string
	inputs     *Ports
	outputs    *Ports
	state      *State
	shapes     *Shapes
	sampleTime float64
	hasST      bool
}

func NewBase(name string) Base {
	return Base{
		name:    name,
		inputs:  NewPorts(),
		outputs: NewPorts(),
		state:   NewState(),
		shapes:  NewShapes(),
	}
}

func (b *Base) Name() string    { return b.name }
func (b *Base) Inputs() *Ports  { return b.inputs }
func (b *Base) Outputs() *Ports { return b.outputs }
func (b *Base) State() *State   { return b.state }
func (b *Base) Shapes() *Shapes { return b.shapes }

func (b *Base) IsSource() bool          { return false }
func (b *Base) DirectFeedthrough() bool { return true }

func (b *Base) SampleTime() (float64, bool) { return b.sampleTime, b.hasST }

// SetSampleTime assigns a period. Non-positive or non-finite values are
// rejected when the simulator builds its tasks, not here.
func (b *Base) SetSampleTime(st float64) {
	b.sampleTime = st
	b.hasST = true
}

func (b *Base) StateUpdate(t, dt float64) error { return nil }

// ResetRun clears ports and observed shapes. Blocks call it at the top of
// Initialize.
func (b *Base) ResetRun() {
	b.outputs.Clear()
	b.shapes.Reset()
}

// RequireInput returns the value on port or a MissingInputError.
func (b *Base) RequireInput(port string) (*mat.Dense, error) {
	v := b.inputs.Get(port)
	if v == nil {
		return nil, &MissingInputError{Block: b.name, Port: port}
	}
	return v, nil
}

// CheckShape freezes the shape of port on first use and rejects later
// values of another shape.
func (b *Base) CheckShape(port string, v mat.Matrix) error {
	want, ok := b.shapes.Observe(port, v)
	if !ok {
		return &ShapeMismatchError{Block: b.name, Port: port, Want: want, Got: signal.ShapeOf(v)}
	}
	return nil
}

// Emit stores v on an output port after checking its shape.
func (b *Base) Emit(port string, v *mat.Dense) error {
	if err := b.CheckShape("out:"+port, v); err != nil {
		return err
	}
	b.outputs.Set(port, v)
	return nil
}

// ParamError builds a ParameterError attributed to this block.
func (b *Base) ParamError(param, reason string) error {
	return &ParameterError{Block: b.name, Param: param, Reason: reason}
}

// Errorf builds a generic block Error.
func (b *Base) Errorf(format string, args ...any) error {
	return &Error{Block: b.name, Msg: fmt.Sprintf(format, args...)}
}

// ValidSampleTime reports whether st is usable as a period.
func ValidSampleTime(st float64) bool {
	return st > 0 && !math.IsInf(st, 0) && !math.IsNaN(st)
}
