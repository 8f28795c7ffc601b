package control

import (
	"sync"

	"github.com/san-kum/blocksim/internal/block"
	"gonum.org/v1/gonum/mat"
)

// Manual is a source whose value is set from outside the simulation, for
// example by a keyboard in the live view. The value persists across runs.
type Manual struct {
	block.Base
	mu    sync.Mutex
	value *mat.Dense
}

func NewManual(name string, initial *mat.Dense) (*Manual, error) {
	m := &Manual{Base: block.NewBase(name)}
	m.Outputs().Declare("out")
	if initial == nil {
		return nil, m.ParamError("value", "is required")
	}
	m.value = mat.DenseCopyOf(initial)
	return m, nil
}

func (m *Manual) IsSource() bool          { return true }
func (m *Manual) DirectFeedthrough() bool { return false }

// Set replaces the value emitted from the next activation on. The shape
// must not change.
func (m *Manual) Set(v *mat.Dense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, c := v.Dims(); r != m.value.RawMatrix().Rows || c != m.value.RawMatrix().Cols {
		return m.Errorf("manual value must keep shape (%d,%d)", m.value.RawMatrix().Rows, m.value.RawMatrix().Cols)
	}
	m.value = mat.DenseCopyOf(v)
	return nil
}

// Nudge adds delta to element i of the value.
func (m *Manual) Nudge(i int, delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, _ := m.value.Dims(); i < 0 || i >= r {
		return
	}
	m.value.Set(i, 0, m.value.At(i, 0)+delta)
}

// Value returns a copy of the current value.
func (m *Manual) Value() *mat.Dense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mat.DenseCopyOf(m.value)
}

func (m *Manual) Initialize(t0 float64) error {
	m.ResetRun()
	return m.Emit("out", m.Value())
}

func (m *Manual) OutputUpdate(t, dt float64) error {
	return m.Emit("out", m.Value())
}
