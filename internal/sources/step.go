package sources

import "gonum.org/v1/gonum/mat"

// Step switches from one value to another at a given time:
//
//	out(t) = before  if t < start
//	out(t) = after   otherwise
type Step struct {
	source
	before, after *mat.Dense
	start         float64
}

func NewStep(name string, before, after *mat.Dense, start float64) (*Step, error) {
	s := &Step{source: newSource(name), start: start}
	vals, err := s.expand([]string{"value_before", "value_after"}, before, after)
	if err != nil {
		return nil, err
	}
	s.before, s.after = vals[0], vals[1]
	return s, nil
}

func (s *Step) value(t float64) *mat.Dense {
	if t < s.start {
		return mat.DenseCopyOf(s.before)
	}
	return mat.DenseCopyOf(s.after)
}

func (s *Step) Initialize(t0 float64) error {
	s.ResetRun()
	return s.Emit("out", s.value(t0))
}

func (s *Step) OutputUpdate(t, dt float64) error {
	return s.Emit("out", s.value(t))
}
