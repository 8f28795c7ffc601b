// Package systems contains plant models.
package systems

import (
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/integrators"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// StateSpaceParams describes a linear time-invariant plant. C defaults to
// the identity and D to zero. When Continuous is set, A and B are the
// continuous-time matrices of dx/dt = A x + B u and each activation
// integrates them over dt with the input held constant.
type StateSpaceParams struct {
	A, B, C, D *mat.Dense
	X0         *mat.Dense
	Continuous bool
}

// LinearStateSpace implements
//
//	x[k+1] = A x[k] + B u[k]
//	y[k]   = C x[k] + D u[k]
//
// It exposes the output y and the full state x as ports.
type LinearStateSpace struct {
	block.Base
	a, b, c, d *mat.Dense
	x0         *mat.Dense
	continuous bool
	rk4        *integrators.RK4
	n, m, p    int
}

func NewLinearStateSpace(name string, params StateSpaceParams) (*LinearStateSpace, error) {
	s := &LinearStateSpace{Base: block.NewBase(name), continuous: params.Continuous}
	s.Inputs().Declare("u")
	s.Outputs().Declare("y")
	s.Outputs().Declare("x")
	s.State().Declare("x")

	if params.A == nil || params.B == nil {
		return nil, s.ParamError("A", "A and B are required")
	}
	n, nc := params.A.Dims()
	if n != nc {
		return nil, s.ParamError("A", "must be square, got "+signal.ShapeOf(params.A).String())
	}
	bn, m := params.B.Dims()
	if bn != n {
		return nil, s.ParamError("B", "must have as many rows as A")
	}

	c := params.C
	if c == nil {
		id := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			id.Set(i, i, 1)
		}
		c = id
	}
	p, cn := c.Dims()
	if cn != n {
		return nil, s.ParamError("C", "must have as many columns as A")
	}
	if params.D != nil {
		if dr, dc := params.D.Dims(); dr != p || dc != m {
			return nil, s.ParamError("D", "must be (rows of C, columns of B)")
		}
		s.d = mat.DenseCopyOf(params.D)
	}

	x0 := params.X0
	if x0 == nil {
		x0 = mat.NewDense(n, 1, nil)
	}
	if signal.ShapeOf(x0) != (signal.Shape{Rows: n, Cols: 1}) {
		return nil, s.ParamError("x0", "must be a column with one entry per state")
	}

	s.a, s.b, s.c, s.x0 = mat.DenseCopyOf(params.A), mat.DenseCopyOf(params.B), mat.DenseCopyOf(c), mat.DenseCopyOf(x0)
	s.n, s.m, s.p = n, m, p
	if s.continuous {
		s.rk4 = integrators.NewRK4()
	}
	s.Shapes().Fix("u", signal.Shape{Rows: m, Cols: 1})
	return s, nil
}

// DirectFeedthrough is true only when D has a non-zero entry.
func (s *LinearStateSpace) DirectFeedthrough() bool {
	if s.d == nil {
		return false
	}
	for _, v := range s.d.RawMatrix().Data {
		if v != 0 {
			return true
		}
	}
	return false
}

func (s *LinearStateSpace) output(x, u *mat.Dense) *mat.Dense {
	y := mat.NewDense(s.p, 1, nil)
	y.Mul(s.c, x)
	if s.DirectFeedthrough() && u != nil {
		var du mat.Dense
		du.Mul(s.d, u)
		y.Add(y, &du)
	}
	return y
}

func (s *LinearStateSpace) Initialize(t0 float64) error {
	s.ResetRun()
	x := mat.DenseCopyOf(s.x0)
	s.State().Reset("x", x)
	if err := s.Emit("x", mat.DenseCopyOf(x)); err != nil {
		return err
	}

	u := s.Inputs().Get("u")
	if s.DirectFeedthrough() && u == nil {
		return nil
	}
	if u != nil {
		if err := s.CheckShape("u", u); err != nil {
			return err
		}
	}
	return s.Emit("y", s.output(x, u))
}

func (s *LinearStateSpace) OutputUpdate(t, dt float64) error {
	x := s.State().Get("x")
	var u *mat.Dense
	if s.DirectFeedthrough() {
		var err error
		if u, err = s.RequireInput("u"); err != nil {
			return err
		}
		if err := s.CheckShape("u", u); err != nil {
			return err
		}
	}
	if err := s.Emit("x", mat.DenseCopyOf(x)); err != nil {
		return err
	}
	return s.Emit("y", s.output(x, u))
}

func (s *LinearStateSpace) StateUpdate(t, dt float64) error {
	u, err := s.RequireInput("u")
	if err != nil {
		return err
	}
	if err := s.CheckShape("u", u); err != nil {
		return err
	}
	x := s.State().Get("x")

	if s.continuous {
		var bu mat.Dense
		bu.Mul(s.b, u)
		f := func(_ float64, x *mat.Dense) *mat.Dense {
			dx := mat.NewDense(s.n, 1, nil)
			dx.Mul(s.a, x)
			dx.Add(dx, &bu)
			return dx
		}
		s.State().SetNext("x", s.rk4.Step(f, x, t, dt))
		return nil
	}

	next := mat.NewDense(s.n, 1, nil)
	var bu mat.Dense
	next.Mul(s.a, x)
	bu.Mul(s.b, u)
	next.Add(next, &bu)
	s.State().SetNext("x", next)
	return nil
}
