// Package signal holds the value convention shared by every port and state
// variable: a value is always a 2D *mat.Dense. Vectors are column matrices and
// scalars are 1x1 matrices.
package signal

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Shape is the (rows, cols) pair of a value.
type Shape struct {
	Rows int
	Cols int
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d,%d)", s.Rows, s.Cols)
}

func (s Shape) IsZero() bool { return s.Rows == 0 && s.Cols == 0 }

// ShapeOf returns the shape of m, or the zero Shape for nil.
func ShapeOf(m mat.Matrix) Shape {
	if m == nil {
		return Shape{}
	}
	if d, ok := m.(*mat.Dense); ok && (d == nil || d.IsEmpty()) {
		return Shape{}
	}
	r, c := m.Dims()
	return Shape{Rows: r, Cols: c}
}

func Scalar(v float64) *mat.Dense {
	return mat.NewDense(1, 1, []float64{v})
}

// Column builds an (n,1) matrix.
func Column(vs ...float64) *mat.Dense {
	if len(vs) == 0 {
		return nil
	}
	data := make([]float64, len(vs))
	copy(data, vs)
	return mat.NewDense(len(vs), 1, data)
}

// FromRows builds a matrix from row slices. All rows must have the same length.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("signal: empty matrix")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, errors.Errorf("signal: row %d has %d columns, want %d", i, len(r), cols)
		}
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// Zeros returns a zero matrix of the given shape.
func Zeros(s Shape) *mat.Dense {
	return mat.NewDense(s.Rows, s.Cols, nil)
}

// ZerosLike returns a zero matrix shaped like m.
func ZerosLike(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	return mat.NewDense(r, c, nil)
}

// Clone deep-copies m. Nil stays nil.
func Clone(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	return mat.DenseCopyOf(m)
}

// Equal reports whether a and b have the same shape and identical elements.
// Two nil values are equal.
func Equal(a, b *mat.Dense) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ShapeOf(a) != ShapeOf(b) {
		return false
	}
	return mat.Equal(a, b)
}

// IsValid reports whether every element is finite.
func IsValid(m mat.Matrix) bool {
	if m == nil {
		return true
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Flatten returns the elements of m in row-major order.
func Flatten(m mat.Matrix) []float64 {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// Map applies fn element-wise and returns a new matrix.
func Map(m mat.Matrix, fn func(v float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return fn(v) }, m)
	return &out
}

// Broadcast returns m expanded to shape s. A 1x1 matrix is repeated, a matrix
// already shaped s is copied, anything else is an error.
func Broadcast(m *mat.Dense, s Shape) (*mat.Dense, error) {
	got := ShapeOf(m)
	switch {
	case got == s:
		return mat.DenseCopyOf(m), nil
	case got == Shape{1, 1}:
		out := Zeros(s)
		v := m.At(0, 0)
		for i := 0; i < s.Rows; i++ {
			for j := 0; j < s.Cols; j++ {
				out.Set(i, j, v)
			}
		}
		return out, nil
	}
	return nil, errors.Errorf("signal: cannot broadcast %s to %s", got, s)
}

// FromAny converts a decoded YAML/JSON value into a matrix. Numbers become
// 1x1 matrices, flat lists become column vectors and nested lists become
// matrices (one inner list per row).
func FromAny(v any) (*mat.Dense, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *mat.Dense:
		return mat.DenseCopyOf(x), nil
	case []float64:
		if len(x) == 0 {
			return nil, errors.New("signal: empty list")
		}
		return Column(x...), nil
	case [][]float64:
		return FromRows(x)
	case []any:
		if len(x) == 0 {
			return nil, errors.New("signal: empty list")
		}
		if _, nested := x[0].([]any); nested {
			rows := make([][]float64, len(x))
			for i, r := range x {
				inner, ok := r.([]any)
				if !ok {
					return nil, errors.Errorf("signal: row %d is not a list", i)
				}
				row := make([]float64, len(inner))
				for j, e := range inner {
					f, err := toFloat(e)
					if err != nil {
						return nil, errors.Wrapf(err, "signal: element [%d][%d]", i, j)
					}
					row[j] = f
				}
				rows[i] = row
			}
			return FromRows(rows)
		}
		col := make([]float64, len(x))
		for i, e := range x {
			f, err := toFloat(e)
			if err != nil {
				return nil, errors.Wrapf(err, "signal: element [%d]", i)
			}
			col[i] = f
		}
		return Column(col...), nil
	default:
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return Scalar(f), nil
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	}
	return 0, errors.Errorf("signal: %v (%T) is not a number", v, v)
}
