package operators

import (
	"math"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// Saturation clips every element of its input to [lower, upper]. Bounds are
// scalars or match the input shape. A nil bound is unbounded.
type Saturation struct {
	block.Base
	lower, upper *mat.Dense
}

func NewSaturation(name string, lower, upper *mat.Dense) (*Saturation, error) {
	s := &Saturation{Base: block.NewBase(name)}
	s.Inputs().Declare("in")
	s.Outputs().Declare("out")
	if lower == nil {
		lower = signal.Scalar(math.Inf(-1))
	}
	if upper == nil {
		upper = signal.Scalar(math.Inf(1))
	}
	if signal.ShapeOf(lower) == signal.ShapeOf(upper) {
		r, c := lower.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if lower.At(i, j) > upper.At(i, j) {
					return nil, s.ParamError("lower", "must not exceed upper")
				}
			}
		}
	}
	s.lower, s.upper = mat.DenseCopyOf(lower), mat.DenseCopyOf(upper)
	return s, nil
}

func (s *Saturation) compute(u *mat.Dense) (*mat.Dense, error) {
	if err := s.CheckShape("in", u); err != nil {
		return nil, err
	}
	shape := signal.ShapeOf(u)
	lo, err := signal.Broadcast(s.lower, shape)
	if err != nil {
		return nil, s.Errorf("lower bound shape %s incompatible with input %s", signal.ShapeOf(s.lower), shape)
	}
	hi, err := signal.Broadcast(s.upper, shape)
	if err != nil {
		return nil, s.Errorf("upper bound shape %s incompatible with input %s", signal.ShapeOf(s.upper), shape)
	}
	out := mat.NewDense(shape.Rows, shape.Cols, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return math.Min(math.Max(v, lo.At(i, j)), hi.At(i, j))
	}, u)
	return out, nil
}

func (s *Saturation) Initialize(t0 float64) error {
	s.ResetRun()
	u := s.Inputs().Get("in")
	if u == nil {
		return nil
	}
	y, err := s.compute(u)
	if err != nil {
		return err
	}
	return s.Emit("out", y)
}

func (s *Saturation) OutputUpdate(t, dt float64) error {
	u, err := s.RequireInput("in")
	if err != nil {
		return err
	}
	y, err := s.compute(u)
	if err != nil {
		return err
	}
	return s.Emit("out", y)
}
