package operators

import (
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// Delay outputs its input from N activations earlier: out[k] = in[k-N].
//
// The shift buffer is held as a single state variable with the N slots
// stacked vertically, oldest first.
type Delay struct {
	block.Base
	n       int
	initial *mat.Dense
}

func NewDelay(name string, numDelays int, initial *mat.Dense) (*Delay, error) {
	d := &Delay{Base: block.NewBase(name), n: numDelays}
	d.Inputs().Declare("in")
	d.Outputs().Declare("out")
	d.State().Declare("buffer")
	if numDelays < 1 {
		return nil, d.ParamError("num_delays", "must be >= 1")
	}
	if initial != nil {
		d.initial = mat.DenseCopyOf(initial)
		d.Shapes().Fix("in", signal.ShapeOf(initial))
	}
	return d, nil
}

func (d *Delay) DirectFeedthrough() bool { return false }

func (d *Delay) fill(v *mat.Dense) *mat.Dense {
	slots := make([]*mat.Dense, d.n)
	for i := range slots {
		slots[i] = v
	}
	return stack(slots)
}

func stack(slots []*mat.Dense) *mat.Dense {
	r, c := slots[0].Dims()
	buf := mat.NewDense(r*len(slots), c, nil)
	for i, s := range slots {
		buf.Slice(i*r, (i+1)*r, 0, c).(*mat.Dense).Copy(s)
	}
	return buf
}

func (d *Delay) slot(buf *mat.Dense, i int) *mat.Dense {
	r, c := buf.Dims()
	r /= d.n
	return mat.DenseCopyOf(buf.Slice(i*r, (i+1)*r, 0, c))
}

func (d *Delay) Initialize(t0 float64) error {
	d.ResetRun()
	if d.initial != nil {
		d.State().Reset("buffer", d.fill(d.initial))
		return d.Emit("out", mat.DenseCopyOf(d.initial))
	}
	u := d.Inputs().Get("in")
	if u == nil {
		d.State().Reset("buffer", nil)
		return nil
	}
	if err := d.CheckShape("in", u); err != nil {
		return err
	}
	d.State().Reset("buffer", d.fill(u))
	return d.Emit("out", mat.DenseCopyOf(u))
}

func (d *Delay) OutputUpdate(t, dt float64) error {
	buf := d.State().Get("buffer")
	if buf != nil {
		return d.Emit("out", d.slot(buf, 0))
	}
	u, err := d.RequireInput("in")
	if err != nil {
		return err
	}
	if err := d.CheckShape("in", u); err != nil {
		return err
	}
	return d.Emit("out", signal.ZerosLike(u))
}

func (d *Delay) StateUpdate(t, dt float64) error {
	u, err := d.RequireInput("in")
	if err != nil {
		return err
	}
	if err := d.CheckShape("in", u); err != nil {
		return err
	}
	buf := d.State().Get("buffer")
	if buf == nil {
		buf = d.fill(signal.ZerosLike(u))
	}
	slots := make([]*mat.Dense, 0, d.n)
	for i := 1; i < d.n; i++ {
		slots = append(slots, d.slot(buf, i))
	}
	slots = append(slots, u)
	d.State().SetNext("buffer", stack(slots))
	return nil
}
