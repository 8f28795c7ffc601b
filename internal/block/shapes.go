package block

import (
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// Shapes tracks the frozen shape of each port. A port is unresolved until a
// value is first observed (or a parameter fixes it), then resolved for the
// rest of the run.
type Shapes struct {
	fixed    map[string]signal.Shape
	observed map[string]signal.Shape
}

func NewShapes() *Shapes {
	return &Shapes{
		fixed:    make(map[string]signal.Shape),
		observed: make(map[string]signal.Shape),
	}
}

// Fix resolves a port from a construction parameter. Fixed shapes survive
// Reset.
func (s *Shapes) Fix(port string, shape signal.Shape) {
	s.fixed[port] = shape
}

// Lookup returns the resolved shape of port, if any.
func (s *Shapes) Lookup(port string) (signal.Shape, bool) {
	if sh, ok := s.fixed[port]; ok {
		return sh, true
	}
	sh, ok := s.observed[port]
	return sh, ok
}

// Observe resolves port on first sight and reports whether m matches the
// resolved shape afterwards.
func (s *Shapes) Observe(port string, m mat.Matrix) (want signal.Shape, ok bool) {
	got := signal.ShapeOf(m)
	if sh, found := s.Lookup(port); found {
		return sh, sh == got
	}
	s.observed[port] = got
	return got, true
}

// Reset forgets shapes observed during a run.
func (s *Shapes) Reset() {
	s.observed = make(map[string]signal.Shape)
}
