package operators

import (
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// DiscreteDerivator estimates du/dt with a backward difference:
//
//	y[k] = (u[k] - u[k-1]) / dt
//
// The first activation emits the initial output (zeros by default). The block
// is stateful but has direct feedthrough.
type DiscreteDerivator struct {
	block.Base
	initial *mat.Dense
	first   bool
}

func NewDiscreteDerivator(name string, initial *mat.Dense) *DiscreteDerivator {
	d := &DiscreteDerivator{Base: block.NewBase(name)}
	d.Inputs().Declare("in")
	d.Outputs().Declare("out")
	d.State().Declare("u_prev")
	if initial != nil {
		d.initial = mat.DenseCopyOf(initial)
		d.Shapes().Fix("in", signal.ShapeOf(initial))
	}
	return d
}

func (d *DiscreteDerivator) Initialize(t0 float64) error {
	d.ResetRun()
	d.first = true
	if d.initial != nil {
		if err := d.Emit("out", mat.DenseCopyOf(d.initial)); err != nil {
			return err
		}
	}

	u := d.Inputs().Get("in")
	if u == nil {
		d.State().Reset("u_prev", nil)
		return nil
	}
	if err := d.CheckShape("in", u); err != nil {
		return err
	}
	d.State().Reset("u_prev", mat.DenseCopyOf(u))
	if d.Outputs().Get("out") == nil {
		return d.Emit("out", signal.ZerosLike(u))
	}
	return nil
}

func (d *DiscreteDerivator) input() (*mat.Dense, error) {
	u, err := d.RequireInput("in")
	if err != nil {
		return nil, err
	}
	if err := d.CheckShape("in", u); err != nil {
		return nil, err
	}
	return u, nil
}

func (d *DiscreteDerivator) OutputUpdate(t, dt float64) error {
	u, err := d.input()
	if err != nil {
		return err
	}
	if d.first {
		d.first = false
		if d.Outputs().Get("out") == nil {
			return d.Emit("out", signal.ZerosLike(u))
		}
		return nil
	}

	prev := d.State().Get("u_prev")
	if prev == nil {
		return d.Emit("out", signal.ZerosLike(u))
	}
	y := mat.DenseCopyOf(u)
	y.Sub(u, prev)
	y.Apply(func(_, _ int, v float64) float64 { return v / dt }, y)
	return d.Emit("out", y)
}

func (d *DiscreteDerivator) StateUpdate(t, dt float64) error {
	u, err := d.input()
	if err != nil {
		return err
	}
	d.State().SetNext("u_prev", mat.DenseCopyOf(u))
	return nil
}
