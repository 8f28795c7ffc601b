package control

import (
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// StateFeedback computes u = G r - K x. Without G the controller regulates
// x toward r, u = -K (x - r), which requires r to have the size of x.
type StateFeedback struct {
	block.Base
	k, g *mat.Dense
}

func NewStateFeedback(name string, k, g *mat.Dense) (*StateFeedback, error) {
	s := &StateFeedback{Base: block.NewBase(name)}
	s.Inputs().Declare("r")
	s.Inputs().Declare("x")
	s.Outputs().Declare("u")
	if k == nil {
		return nil, s.ParamError("K", "is required")
	}
	if g == nil {
		g = k
	}
	m, n := k.Dims()
	gm, p := g.Dims()
	if gm != m {
		return nil, s.ParamError("G", "must have as many rows as K")
	}
	s.k, s.g = mat.DenseCopyOf(k), mat.DenseCopyOf(g)
	s.Shapes().Fix("x", signal.Shape{Rows: n, Cols: 1})
	s.Shapes().Fix("r", signal.Shape{Rows: p, Cols: 1})
	return s, nil
}

func (s *StateFeedback) compute() (*mat.Dense, error) {
	r, err := s.RequireInput("r")
	if err != nil {
		return nil, err
	}
	x, err := s.RequireInput("x")
	if err != nil {
		return nil, err
	}
	if err := s.CheckShape("r", r); err != nil {
		return nil, err
	}
	if err := s.CheckShape("x", x); err != nil {
		return nil, err
	}

	m, _ := s.k.Dims()
	u := mat.NewDense(m, 1, nil)
	var kx mat.Dense
	u.Mul(s.g, r)
	kx.Mul(s.k, x)
	u.Sub(u, &kx)
	return u, nil
}

func (s *StateFeedback) Initialize(t0 float64) error {
	s.ResetRun()
	if s.Inputs().Get("r") == nil || s.Inputs().Get("x") == nil {
		return nil
	}
	u, err := s.compute()
	if err != nil {
		return err
	}
	return s.Emit("u", u)
}

func (s *StateFeedback) OutputUpdate(t, dt float64) error {
	u, err := s.compute()
	if err != nil {
		return err
	}
	return s.Emit("u", u)
}
