package operators

import (
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/integrators"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// DiscreteIntegrator accumulates its input over time with an Euler scheme.
//
// Without an initial state the integrator is lazy: the state starts at zero
// with the shape of the first input it sees. With forward Euler the block has
// no direct feedthrough and therefore breaks feedback loops.
type DiscreteIntegrator struct {
	block.Base
	scheme  integrators.Scheme
	initial *mat.Dense
}

func NewDiscreteIntegrator(name string, initial *mat.Dense, method string) (*DiscreteIntegrator, error) {
	d := &DiscreteIntegrator{Base: block.NewBase(name)}
	d.Inputs().Declare("in")
	d.Outputs().Declare("out")
	d.State().Declare("x")

	scheme, err := integrators.Lookup(method)
	if err != nil {
		return nil, d.ParamError("method", err.Error())
	}
	d.scheme = scheme
	if initial != nil {
		d.initial = mat.DenseCopyOf(initial)
		d.Shapes().Fix("in", signal.ShapeOf(initial))
	}
	return d, nil
}

func (d *DiscreteIntegrator) DirectFeedthrough() bool { return d.scheme.DirectFeedthrough() }

// Method is the integration scheme name.
func (d *DiscreteIntegrator) Method() string { return d.scheme.Name() }

func (d *DiscreteIntegrator) Initialize(t0 float64) error {
	d.ResetRun()
	if d.initial == nil {
		d.State().Reset("x", nil)
		return nil
	}
	d.State().Reset("x", mat.DenseCopyOf(d.initial))
	return d.Emit("out", mat.DenseCopyOf(d.initial))
}

func (d *DiscreteIntegrator) input() (*mat.Dense, error) {
	u, err := d.RequireInput("in")
	if err != nil {
		return nil, err
	}
	if err := d.CheckShape("in", u); err != nil {
		return nil, err
	}
	return u, nil
}

func (d *DiscreteIntegrator) OutputUpdate(t, dt float64) error {
	x := d.State().Get("x")
	if x != nil && !d.scheme.DirectFeedthrough() {
		return d.Emit("out", d.scheme.Output(x, nil, dt))
	}
	u, err := d.input()
	if err != nil {
		return err
	}
	if x == nil {
		x = signal.ZerosLike(u)
	}
	return d.Emit("out", d.scheme.Output(x, u, dt))
}

func (d *DiscreteIntegrator) StateUpdate(t, dt float64) error {
	u, err := d.input()
	if err != nil {
		return err
	}
	x := d.State().Get("x")
	if x == nil {
		x = signal.ZerosLike(u)
	}
	d.State().SetNext("x", d.scheme.Next(x, u, dt))
	return nil
}
