package operators

import (
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// Gain computes out = K * in. A 1x1 K scales any input elementwise; any
// other K is applied as a matrix product and requires in to have as many
// rows as K has columns.
type Gain struct {
	block.Base
	k *mat.Dense
}

func NewGain(name string, k *mat.Dense) (*Gain, error) {
	g := &Gain{Base: block.NewBase(name)}
	g.Inputs().Declare("in")
	g.Outputs().Declare("out")
	if k == nil {
		k = signal.Scalar(1)
	}
	if !signal.IsValid(k) {
		return nil, g.ParamError("gain", "must be finite")
	}
	g.k = mat.DenseCopyOf(k)
	return g, nil
}

func (g *Gain) compute(u *mat.Dense) (*mat.Dense, error) {
	if err := g.CheckShape("in", u); err != nil {
		return nil, err
	}
	kr, kc := g.k.Dims()
	if kr == 1 && kc == 1 {
		out := mat.DenseCopyOf(u)
		out.Scale(g.k.At(0, 0), u)
		return out, nil
	}
	ur, uc := u.Dims()
	if ur != kc {
		return nil, g.Errorf("incompatible dimensions: K has shape (%d,%d) but input 'in' has shape (%d,%d)", kr, kc, ur, uc)
	}
	out := mat.NewDense(kr, uc, nil)
	out.Mul(g.k, u)
	return out, nil
}

func (g *Gain) Initialize(t0 float64) error {
	g.ResetRun()
	u := g.Inputs().Get("in")
	if u == nil {
		return nil
	}
	y, err := g.compute(u)
	if err != nil {
		return err
	}
	return g.Emit("out", y)
}

func (g *Gain) OutputUpdate(t, dt float64) error {
	u, err := g.RequireInput("in")
	if err != nil {
		return err
	}
	y, err := g.compute(u)
	if err != nil {
		return err
	}
	return g.Emit("out", y)
}
