package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	Samples int
	Missing int
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
	Final   float64
}

// Summarize computes statistics over the finite samples of a signal.
func Summarize(samples []float64) Summary {
	vals := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	s := Summary{Samples: len(samples), Missing: len(samples) - len(vals)}
	if len(vals) == 0 {
		s.Mean, s.StdDev, s.Min, s.Max, s.Final = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		s.StdDev = 0
	}
	s.Min = floats.Min(vals)
	s.Max = floats.Max(vals)
	s.Final = vals[len(vals)-1]
	return s
}

// SettlingTime returns the first time after which every sample stays
// within tol of the final value. ok is false when the signal never settles
// before its last sample.
func SettlingTime(times, samples []float64, tol float64) (float64, bool) {
	n := len(samples)
	if n == 0 || len(times) != n {
		return 0, false
	}
	final := samples[n-1]
	settled := n - 1
	for i := n - 1; i >= 0; i-- {
		if math.IsNaN(samples[i]) || math.Abs(samples[i]-final) > tol {
			break
		}
		settled = i
	}
	if settled == n-1 && n > 1 {
		return times[settled], false
	}
	return times[settled], true
}
