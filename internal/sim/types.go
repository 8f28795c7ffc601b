package sim

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Metric accumulates a statistic over one logged signal.
type Metric interface {
	Name() string
	// Signal is the key of the observed output, "<block>.outputs.<port>".
	Signal() string
	Observe(t float64, v *mat.Dense)
	Value() float64
	Reset()
}

// Observer is notified after every completed step with the tasks that ran.
type Observer interface {
	OnStep(t float64, active []*Task)
}

// RunObserver is notified when Run or RunUntil returns.
type RunObserver interface {
	OnRunEnd(steps int64, elapsed time.Duration, err error)
}

// Phase is the simulator lifecycle state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitialized
	PhaseStepping
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitialized:
		return "initialized"
	case PhaseStepping:
		return "stepping"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}
