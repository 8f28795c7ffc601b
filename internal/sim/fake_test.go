package sim

import (
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
)

// fake is a scalar test block. Outputs are the sum of connected inputs, or
// the held state for stateful fakes; StateUpdate accumulates the inputs.
type fake struct {
	block.Base
	src   bool
	ft    bool
	value float64
	trace *[]string
}

func newFake(name string, src, ft, stateful bool, inputs ...string) *fake {
	f := &fake{Base: block.NewBase(name), src: src, ft: ft}
	for _, in := range inputs {
		f.Inputs().Declare(in)
	}
	f.Outputs().Declare("out")
	if stateful {
		f.State().Declare("x")
	}
	return f
}

func source(name string, v float64) *fake {
	f := newFake(name, true, false, false)
	f.value = v
	return f
}

func comb(name string, inputs ...string) *fake {
	return newFake(name, false, true, false, inputs...)
}

func delay(name string) *fake {
	return newFake(name, false, false, true, "in")
}

func (f *fake) IsSource() bool          { return f.src }
func (f *fake) DirectFeedthrough() bool { return f.ft }

func (f *fake) note(s string) {
	if f.trace != nil {
		*f.trace = append(*f.trace, s)
	}
}

func (f *fake) sum() float64 {
	total := f.value
	for _, p := range f.Inputs().Names() {
		if v := f.Inputs().Get(p); v != nil {
			total += v.At(0, 0)
		}
	}
	return total
}

func (f *fake) Initialize(t0 float64) error {
	f.ResetRun()
	if block.IsStateful(f) {
		f.State().Reset("x", signal.Scalar(0))
		return f.Emit("out", signal.Scalar(0))
	}
	return f.Emit("out", signal.Scalar(f.sum()))
}

func (f *fake) OutputUpdate(t, dt float64) error {
	f.note("out:" + f.Name())
	if block.IsStateful(f) {
		return f.Emit("out", signal.Clone(f.State().Get("x")))
	}
	return f.Emit("out", signal.Scalar(f.sum()))
}

func (f *fake) StateUpdate(t, dt float64) error {
	f.note("state:" + f.Name())
	x := f.State().Get("x").At(0, 0)
	f.State().SetNext("x", signal.Scalar(x+f.sum()))
	return nil
}

func names(bs []block.Block) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name()
	}
	return out
}

func toBlocks(fs ...*fake) []block.Block {
	out := make([]block.Block, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}
