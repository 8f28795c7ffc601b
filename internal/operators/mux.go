package operators

import (
	"fmt"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// Mux stacks its inputs into one column vector: out = [in1; in2; ...; inN].
// Matrix inputs are flattened row by row.
type Mux struct {
	block.Base
	ports []string
}

func NewMux(name string, numInputs int) (*Mux, error) {
	m := &Mux{Base: block.NewBase(name)}
	if numInputs < 1 {
		return nil, m.ParamError("num_inputs", "must be >= 1")
	}
	for i := 0; i < numInputs; i++ {
		p := fmt.Sprintf("in%d", i+1)
		m.ports = append(m.ports, p)
		m.Inputs().Declare(p)
	}
	m.Outputs().Declare("out")
	return m, nil
}

func (m *Mux) compute() (*mat.Dense, error) {
	var values []float64
	for _, p := range m.ports {
		u, err := m.RequireInput(p)
		if err != nil {
			return nil, err
		}
		if err := m.CheckShape(p, u); err != nil {
			return nil, err
		}
		values = append(values, signal.Flatten(u)...)
	}
	return signal.Column(values...), nil
}

func (m *Mux) Initialize(t0 float64) error {
	m.ResetRun()
	for _, p := range m.ports {
		if m.Inputs().Get(p) == nil {
			return nil
		}
	}
	y, err := m.compute()
	if err != nil {
		return err
	}
	return m.Emit("out", y)
}

func (m *Mux) OutputUpdate(t, dt float64) error {
	y, err := m.compute()
	if err != nil {
		return err
	}
	return m.Emit("out", y)
}
