package sources

import "gonum.org/v1/gonum/mat"

// Constant emits the same value at every activation.
type Constant struct {
	source
	value *mat.Dense
}

// NewConstant accepts any 2D value; matrices are emitted unchanged.
func NewConstant(name string, value *mat.Dense) (*Constant, error) {
	c := &Constant{source: newSource(name)}
	if value == nil {
		return nil, c.ParamError("value", "is required")
	}
	c.value = mat.DenseCopyOf(value)
	return c, nil
}

func (c *Constant) Initialize(t0 float64) error {
	c.ResetRun()
	return c.Emit("out", mat.DenseCopyOf(c.value))
}

func (c *Constant) OutputUpdate(t, dt float64) error {
	return c.Emit("out", mat.DenseCopyOf(c.value))
}
