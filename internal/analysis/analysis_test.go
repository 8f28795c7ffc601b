package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDominantFrequency(t *testing.T) {
	const dt = 0.01
	samples := make([]float64, 200)
	for i := range samples {
		samples[i] = 3 + math.Sin(2*math.Pi*5*float64(i)*dt)
	}
	f, err := DominantFrequency(samples, dt)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, f, 0.01)
}

func TestPowerSpectrumErrors(t *testing.T) {
	_, err := PowerSpectrum([]float64{1}, 0.1)
	assert.Error(t, err)
	_, err = PowerSpectrum([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestFlatSpectrum(t *testing.T) {
	s, err := PowerSpectrum([]float64{2, 2, 2, 2}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Dominant())
	assert.Len(t, s.Freqs, 3)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, math.NaN(), 3, 5})
	assert.Equal(t, 4, s.Samples)
	assert.Equal(t, 1, s.Missing)
	assert.Equal(t, 3.0, s.Mean)
	assert.Equal(t, 2.0, s.StdDev)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 5.0, s.Final)

	empty := Summarize([]float64{math.NaN()})
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestSettlingTime(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	ts, ok := SettlingTime(times, []float64{0, 2, 0.98, 1.01, 1}, 0.05)
	assert.True(t, ok)
	assert.Equal(t, 2.0, ts)

	_, ok = SettlingTime(times, []float64{0, 1, 0, 1, 0}, 0.05)
	assert.False(t, ok)
}

func TestCrossings(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	got := Crossings(times, []float64{-1, 1, -1, -1, 3}, 0)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.5, got[0], 1e-12)
	assert.InDelta(t, 3.25, got[1], 1e-12)
}

func TestPhasePortrait(t *testing.T) {
	p := NewPhasePortrait("x", []float64{-1, 0, 1, math.NaN()}, "y", []float64{1, 0, -1, 2})
	assert.Len(t, p.Points, 3)

	art := p.ASCII(10, 5)
	lines := strings.Split(strings.TrimRight(art, "\n"), "\n")
	assert.Len(t, lines, 5)
	assert.Contains(t, art, "•")

	assert.Empty(t, (&PhasePortrait{}).ASCII(10, 5))
}
