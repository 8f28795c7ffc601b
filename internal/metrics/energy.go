package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Energy is the mean squared Frobenius norm of a signal.
type Energy struct {
	name    string
	signal  string
	total   float64
	samples int
}

func NewEnergy(signal string) *Energy {
	return &Energy{
		name:   "energy",
		signal: signal,
	}
}

func (e *Energy) Name() string   { return e.name }
func (e *Energy) Signal() string { return e.signal }

func (e *Energy) Observe(t float64, v *mat.Dense) {
	if v == nil {
		return
	}
	n := mat.Norm(v, 2)
	e.total += n * n
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// RMS is the root mean square of a signal over the run.
type RMS struct {
	Energy
}

func NewRMS(signal string) *RMS {
	r := &RMS{Energy: *NewEnergy(signal)}
	r.name = "rms"
	return r
}

func (r *RMS) Value() float64 { return math.Sqrt(r.Energy.Value()) }

// Peak tracks the largest absolute element seen, and when it occurred.
type Peak struct {
	name   string
	signal string
	peak   float64
	at     float64
	seen   bool
}

func NewPeak(signal string) *Peak {
	return &Peak{
		name:   "peak",
		signal: signal,
	}
}

func (p *Peak) Name() string   { return p.name }
func (p *Peak) Signal() string { return p.signal }

func (p *Peak) Observe(t float64, v *mat.Dense) {
	if v == nil {
		return
	}
	m := math.Max(math.Abs(mat.Max(v)), math.Abs(mat.Min(v)))
	if !p.seen || m > p.peak {
		p.peak, p.at, p.seen = m, t, true
	}
}

func (p *Peak) Value() float64 { return p.peak }

// Time is the instant of the peak.
func (p *Peak) Time() float64 { return p.at }

func (p *Peak) Reset() {
	p.peak, p.at, p.seen = 0, 0, false
}
