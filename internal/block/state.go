package block

import "gonum.org/v1/gonum/mat"

// State is the double-buffered set of state variables of a block. Current
// values are read during both update phases; StateUpdate writes only the
// pending buffer, and Commit swaps it in.
type State struct {
	names []string
	cur   map[string]*mat.Dense
	next  map[string]*mat.Dense
}

func NewState() *State {
	return &State{
		cur:  make(map[string]*mat.Dense),
		next: make(map[string]*mat.Dense),
	}
}

// Declare adds a state variable with no value yet.
func (s *State) Declare(name string) {
	if _, ok := s.cur[name]; ok {
		return
	}
	s.names = append(s.names, name)
	s.cur[name] = nil
	s.next[name] = nil
}

// Len is the number of declared state variables. A block with Len() > 0 is
// stateful.
func (s *State) Len() int { return len(s.names) }

func (s *State) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get returns the current value. Callers must not modify it in place.
func (s *State) Get(name string) *mat.Dense { return s.cur[name] }

// SetNext records the value for the next activation.
func (s *State) SetNext(name string, v *mat.Dense) {
	if _, ok := s.cur[name]; !ok {
		s.Declare(name)
	}
	s.next[name] = v
}

// Reset sets both buffers. Only Initialize should call it.
func (s *State) Reset(name string, v *mat.Dense) {
	if _, ok := s.cur[name]; !ok {
		s.Declare(name)
	}
	s.cur[name] = v
	if v == nil {
		s.next[name] = nil
		return
	}
	s.next[name] = mat.DenseCopyOf(v)
}

// Commit makes every pending value current. Variables with no pending value
// keep their current value.
func (s *State) Commit() {
	for _, n := range s.names {
		if v := s.next[n]; v != nil {
			s.cur[n] = v
		}
	}
}
