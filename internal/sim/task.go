package sim

import (
	"math"

	"github.com/san-kum/blocksim/internal/block"
)

// activationTol is the relative tolerance applied when comparing a
// simulation instant against an activation time.
const activationTol = 1e-12

func tolerance(v float64) float64 {
	return activationTol * math.Max(1, math.Abs(v))
}

// Task groups the blocks sharing one sample time.
//
// Activation times are computed as start + count*sampleTime rather than by
// repeated addition, so they do not drift over long runs.
type Task struct {
	sampleTime   float64
	outputBlocks []block.Block
	stateBlocks  []block.Block

	start   float64
	count   int64
	last    float64
	hasLast bool
}

// NewTask keeps the blocks of outputOrder that belong to blocks, in that
// order. State blocks follow stateOrder when given, otherwise outputOrder.
func NewTask(sampleTime float64, blocks, outputOrder, stateOrder []block.Block) *Task {
	member := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		member[b.Name()] = true
	}
	t := &Task{sampleTime: sampleTime}
	for _, b := range outputOrder {
		if member[b.Name()] {
			t.outputBlocks = append(t.outputBlocks, b)
		}
	}
	if stateOrder == nil {
		stateOrder = outputOrder
	}
	for _, b := range stateOrder {
		if member[b.Name()] && block.IsStateful(b) {
			t.stateBlocks = append(t.stateBlocks, b)
		}
	}
	return t
}

func (t *Task) SampleTime() float64         { return t.sampleTime }
func (t *Task) OutputBlocks() []block.Block { return t.outputBlocks }
func (t *Task) StateBlocks() []block.Block  { return t.stateBlocks }
func (t *Task) Activations() int64          { return t.count }

func (t *Task) NextActivation() float64 {
	return t.start + float64(t.count)*t.sampleTime
}

// LastActivation is the time of the previous activation; ok is false before
// the first one.
func (t *Task) LastActivation() (at float64, ok bool) { return t.last, t.hasLast }

// ShouldRun reports whether the task is due at time now.
func (t *Task) ShouldRun(now float64) bool {
	next := t.NextActivation()
	return now+tolerance(next) >= next
}

// Dt is the step to hand to the blocks at time now: the sample time on the
// first activation, the elapsed time since the previous one afterwards.
func (t *Task) Dt(now float64) float64 {
	if !t.hasLast {
		return t.sampleTime
	}
	return now - t.last
}

// Advance records the current activation. Call it once per activation,
// after the blocks ran.
func (t *Task) Advance() {
	t.last = t.NextActivation()
	t.hasLast = true
	t.count++
}

// Reset schedules the first activation at t0.
func (t *Task) Reset(t0 float64) {
	t.start = t0
	t.count = 0
	t.last = 0
	t.hasLast = false
}
