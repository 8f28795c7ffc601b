package sources

import (
	"math"

	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// SourceFunc computes the output of a FunctionSource at time t.
type SourceFunc func(t, dt float64) (*mat.Dense, error)

// FunctionSource emits out = f(t, dt) for a named Go function. The output
// shape is frozen after the first evaluation.
type FunctionSource struct {
	source
	fn SourceFunc
}

func NewFunctionSource(name string, fn SourceFunc) (*FunctionSource, error) {
	f := &FunctionSource{source: newSource(name), fn: fn}
	if fn == nil {
		return nil, f.ParamError("function", "is required")
	}
	return f, nil
}

func (f *FunctionSource) call(t, dt float64) error {
	y, err := f.fn(t, dt)
	if err != nil {
		return f.Errorf("function call error: %v", err)
	}
	if y == nil {
		return f.Errorf("function returned no value")
	}
	return f.Emit("out", mat.DenseCopyOf(y))
}

func (f *FunctionSource) Initialize(t0 float64) error {
	f.ResetRun()
	return f.call(t0, 0)
}

func (f *FunctionSource) OutputUpdate(t, dt float64) error {
	return f.call(t, dt)
}

// BuiltinFuncs returns the source functions every registry knows. Periodic
// ones have a period of one second.
func BuiltinFuncs() map[string]SourceFunc {
	return map[string]SourceFunc{
		"time": func(t, dt float64) (*mat.Dense, error) {
			return signal.Scalar(t), nil
		},
		"square": func(t, dt float64) (*mat.Dense, error) {
			if t-math.Floor(t) < 0.5 {
				return signal.Scalar(1), nil
			}
			return signal.Scalar(-1), nil
		},
		"sawtooth": func(t, dt float64) (*mat.Dense, error) {
			return signal.Scalar(t - math.Floor(t)), nil
		},
	}
}
