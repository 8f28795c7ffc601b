package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
)

// Spectrum is the one-sided amplitude spectrum of a uniformly sampled
// signal.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum computes the spectrum of samples taken every dt seconds.
// The mean is removed first so the DC bin reflects only the offset-free
// signal. NaN samples are treated as zero.
func PowerSpectrum(samples []float64, dt float64) (*Spectrum, error) {
	n := len(samples)
	if n < 2 {
		return nil, errors.Errorf("analysis: need at least 2 samples, got %d", n)
	}
	if !(dt > 0) {
		return nil, errors.Errorf("analysis: dt must be > 0, got %v", dt)
	}

	mean, count := 0.0, 0
	for _, v := range samples {
		if !math.IsNaN(v) {
			mean += v
			count++
		}
	}
	if count > 0 {
		mean /= float64(count)
	}
	seq := make([]float64, n)
	for i, v := range samples {
		if !math.IsNaN(v) {
			seq[i] = v - mean
		}
	}

	coeffs := fft.FFTReal(seq)[:n/2+1]
	s := &Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Power: make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		s.Freqs[i] = float64(i) / (float64(n) * dt)
		s.Power[i] = cmplx.Abs(c) / float64(n)
	}
	return s, nil
}

// Dominant returns the frequency of the largest non-DC bin, or 0 for a
// flat signal.
func (s *Spectrum) Dominant() float64 {
	best, idx := 0.0, 0
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > best {
			best, idx = s.Power[i], i
		}
	}
	return s.Freqs[idx]
}

func DominantFrequency(samples []float64, dt float64) (float64, error) {
	s, err := PowerSpectrum(samples, dt)
	if err != nil {
		return 0, err
	}
	return s.Dominant(), nil
}
