package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ControlEffort is the mean absolute value of a signal, summed over its
// elements.
type ControlEffort struct {
	name    string
	signal  string
	sum     float64
	samples int
}

func NewControlEffort(signal string) *ControlEffort {
	return &ControlEffort{
		name:   "control_effort",
		signal: signal,
	}
}

func (c *ControlEffort) Name() string   { return c.name }
func (c *ControlEffort) Signal() string { return c.signal }

func (c *ControlEffort) Observe(t float64, v *mat.Dense) {
	if v == nil {
		return
	}
	r, cols := v.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			c.sum += math.Abs(v.At(i, j))
		}
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
