package operators

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// Func computes the outputs of an AlgebraicFunction at time t. in holds one
// value per input key. The result must carry a value for every output key;
// extra keys are ignored.
type Func func(t, dt float64, in map[string]*mat.Dense) (map[string]*mat.Dense, error)

// AlgebraicFunction is a stateless block whose outputs are computed by a
// named Go function. Its ports are the declared input and output keys, and
// every port's shape is frozen on first use.
type AlgebraicFunction struct {
	block.Base
	fn      Func
	inKeys  []string
	outKeys []string
}

func NewAlgebraicFunction(name string, fn Func, inKeys, outKeys []string) (*AlgebraicFunction, error) {
	a := &AlgebraicFunction{Base: block.NewBase(name), fn: fn}
	if fn == nil {
		return nil, a.ParamError("function", "is required")
	}
	if len(inKeys) == 0 {
		return nil, a.ParamError("input_keys", "cannot be empty")
	}
	if len(outKeys) == 0 {
		return nil, a.ParamError("output_keys", "cannot be empty")
	}
	for _, k := range inKeys {
		if k == "" || a.Inputs().Has(k) {
			return nil, a.ParamError("input_keys", "keys must be unique and non-empty")
		}
		a.Inputs().Declare(k)
	}
	for _, k := range outKeys {
		if k == "" || a.Outputs().Has(k) {
			return nil, a.ParamError("output_keys", "keys must be unique and non-empty")
		}
		a.Outputs().Declare(k)
	}
	a.inKeys = a.Inputs().Names()
	a.outKeys = a.Outputs().Names()
	return a, nil
}

func (a *AlgebraicFunction) call(t, dt float64, in map[string]*mat.Dense) error {
	out, err := a.fn(t, dt, in)
	if err != nil {
		return a.Errorf("function call error: %v", err)
	}
	for _, k := range a.outKeys {
		y := out[k]
		if y == nil {
			return a.Errorf("missing output key '%s' (expected %s)", k, strings.Join(a.outKeys, ", "))
		}
		if err := a.Emit(k, mat.DenseCopyOf(y)); err != nil {
			return err
		}
	}
	return nil
}

// Initialize computes the outputs only when every input is already known.
func (a *AlgebraicFunction) Initialize(t0 float64) error {
	a.ResetRun()
	in := make(map[string]*mat.Dense, len(a.inKeys))
	for _, k := range a.inKeys {
		u := a.Inputs().Get(k)
		if u == nil {
			return nil
		}
		if err := a.CheckShape(k, u); err != nil {
			return err
		}
		in[k] = mat.DenseCopyOf(u)
	}
	return a.call(t0, 0, in)
}

func (a *AlgebraicFunction) OutputUpdate(t, dt float64) error {
	in := make(map[string]*mat.Dense, len(a.inKeys))
	for _, k := range a.inKeys {
		u, err := a.RequireInput(k)
		if err != nil {
			return err
		}
		if err := a.CheckShape(k, u); err != nil {
			return err
		}
		in[k] = mat.DenseCopyOf(u)
	}
	return a.call(t, dt, in)
}

// BuiltinFuncs returns the functions every registry knows. Each combines all
// of its inputs and writes the result to "out".
func BuiltinFuncs() map[string]Func {
	return map[string]Func{
		"product": elementwise("product", func(acc, v float64) float64 { return acc * v }),
		"max":     elementwise("max", math.Max),
		"min":     elementwise("min", math.Min),
		"norm":    norm,
		"abs":     abs,
	}
}

// values returns the inputs sorted by key.
func values(in map[string]*mat.Dense) []*mat.Dense {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*mat.Dense, len(keys))
	for i, k := range keys {
		out[i] = in[k]
	}
	return out
}

func elementwise(op string, f func(acc, v float64) float64) Func {
	return func(t, dt float64, in map[string]*mat.Dense) (map[string]*mat.Dense, error) {
		vs := values(in)
		if len(vs) == 0 {
			return nil, errors.Errorf("%s: no inputs", op)
		}
		acc := mat.DenseCopyOf(vs[0])
		shape := signal.ShapeOf(acc)
		for _, v := range vs[1:] {
			if got := signal.ShapeOf(v); got != shape {
				return nil, errors.Errorf("%s: inputs must share a shape, got %s and %s", op, shape, got)
			}
			acc.Apply(func(i, j int, x float64) float64 { return f(x, v.At(i, j)) }, acc)
		}
		return map[string]*mat.Dense{"out": acc}, nil
	}
}

// norm is the Euclidean norm of all inputs stacked together.
func norm(t, dt float64, in map[string]*mat.Dense) (map[string]*mat.Dense, error) {
	var sum float64
	for _, v := range values(in) {
		n := mat.Norm(v, 2)
		sum += n * n
	}
	return map[string]*mat.Dense{"out": signal.Scalar(math.Sqrt(sum))}, nil
}

// abs takes the elementwise absolute value of a single input.
func abs(t, dt float64, in map[string]*mat.Dense) (map[string]*mat.Dense, error) {
	vs := values(in)
	if len(vs) != 1 {
		return nil, errors.Errorf("abs: expected one input, got %d", len(vs))
	}
	return map[string]*mat.Dense{"out": signal.Map(vs[0], math.Abs)}, nil
}
