package sources

import (
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// source is the common base of every block in this package.
type source struct {
	block.Base
}

func newSource(name string) source {
	s := source{Base: block.NewBase(name)}
	s.Outputs().Declare("out")
	return s
}

func (s *source) IsSource() bool          { return true }
func (s *source) DirectFeedthrough() bool { return false }

// column checks that m is a column vector and returns a copy.
func (s *source) column(param string, m *mat.Dense) (*mat.Dense, error) {
	if m == nil {
		return nil, s.ParamError(param, "is required")
	}
	if _, c := m.Dims(); c != 1 {
		return nil, s.ParamError(param, "must be a scalar or a column vector, got "+signal.ShapeOf(m).String())
	}
	return mat.DenseCopyOf(m), nil
}

// expand broadcasts column parameters to a common length.
func (s *source) expand(names []string, params ...*mat.Dense) ([]*mat.Dense, error) {
	n := 1
	for i, p := range params {
		col, err := s.column(names[i], p)
		if err != nil {
			return nil, err
		}
		params[i] = col
		if r, _ := col.Dims(); r > n {
			n = r
		}
	}
	out := make([]*mat.Dense, len(params))
	for i, p := range params {
		v, err := signal.Broadcast(p, signal.Shape{Rows: n, Cols: 1})
		if err != nil {
			return nil, s.ParamError(names[i], "inconsistent size with target dimension")
		}
		out[i] = v
	}
	return out, nil
}
