package sources

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Ramp emits out_i(t) = initial_i + slope_i * max(0, t - start_i).
type Ramp struct {
	source
	slope, start, initial *mat.Dense
}

// NewRamp builds a ramp. A nil initial output means zeros.
func NewRamp(name string, slope, start, initial *mat.Dense) (*Ramp, error) {
	r := &Ramp{source: newSource(name)}
	if start == nil {
		start = mat.NewDense(1, 1, []float64{0})
	}
	if initial == nil {
		initial = mat.NewDense(1, 1, []float64{0})
	}
	vals, err := r.expand([]string{"slope", "start_time", "initial_output"}, slope, start, initial)
	if err != nil {
		return nil, err
	}
	r.slope, r.start, r.initial = vals[0], vals[1], vals[2]
	return r, nil
}

func (r *Ramp) value(t float64) *mat.Dense {
	n, _ := r.slope.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		elapsed := math.Max(0, t-r.start.At(i, 0))
		out.Set(i, 0, r.initial.At(i, 0)+r.slope.At(i, 0)*elapsed)
	}
	return out
}

func (r *Ramp) Initialize(t0 float64) error {
	r.ResetRun()
	return r.Emit("out", mat.DenseCopyOf(r.initial))
}

func (r *Ramp) OutputUpdate(t, dt float64) error {
	return r.Emit("out", r.value(t))
}
