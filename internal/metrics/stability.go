package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Stability is the fraction of steps where every element of a signal
// stays within the threshold. Non-finite values count as violations.
type Stability struct {
	name       string
	signal     string
	threshold  float64
	violations int
	samples    int
}

func NewStability(signal string, threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		signal:    signal,
		threshold: threshold,
	}
}

func (s *Stability) Name() string   { return s.name }
func (s *Stability) Signal() string { return s.signal }

func (s *Stability) Observe(t float64, v *mat.Dense) {
	if v == nil {
		return
	}
	s.samples++
	r, c := v.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			val := v.At(i, j)
			if math.IsNaN(val) || math.Abs(val) > s.threshold {
				s.violations++
				return
			}
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
