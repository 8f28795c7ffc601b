package sources

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sinusoidal emits out_i(t) = A_i sin(2π f_i t + φ_i) + offset_i.
type Sinusoidal struct {
	source
	amplitude, frequency, offset, phase *mat.Dense
}

func NewSinusoidal(name string, amplitude, frequency, offset, phase *mat.Dense) (*Sinusoidal, error) {
	s := &Sinusoidal{source: newSource(name)}
	if offset == nil {
		offset = mat.NewDense(1, 1, []float64{0})
	}
	if phase == nil {
		phase = mat.NewDense(1, 1, []float64{0})
	}
	vals, err := s.expand([]string{"amplitude", "frequency", "offset", "phase"}, amplitude, frequency, offset, phase)
	if err != nil {
		return nil, err
	}
	s.amplitude, s.frequency, s.offset, s.phase = vals[0], vals[1], vals[2], vals[3]
	return s, nil
}

func (s *Sinusoidal) value(t float64) *mat.Dense {
	n, _ := s.amplitude.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		arg := 2*math.Pi*s.frequency.At(i, 0)*t + s.phase.At(i, 0)
		out.Set(i, 0, s.amplitude.At(i, 0)*math.Sin(arg)+s.offset.At(i, 0))
	}
	return out
}

func (s *Sinusoidal) Initialize(t0 float64) error {
	s.ResetRun()
	return s.Emit("out", s.value(t0))
}

func (s *Sinusoidal) OutputUpdate(t, dt float64) error {
	return s.Emit("out", s.value(t))
}
