package sim

import (
	"math"
	"sort"
)

// Scheduler dispatches tasks by sample time.
type Scheduler struct {
	tasks []*Task
}

// NewScheduler sorts tasks by ascending sample time. Every sample time must
// be a positive integer multiple of dtBase.
func NewScheduler(dtBase float64, tasks []*Task) (*Scheduler, error) {
	if dtBase <= 0 {
		return nil, configErrorf("base time step must be strictly positive, got %g", dtBase)
	}
	for _, t := range tasks {
		if _, err := multipleOf(t.SampleTime(), dtBase); err != nil {
			return nil, err
		}
	}
	sorted := make([]*Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SampleTime() < sorted[j].SampleTime()
	})
	return &Scheduler{tasks: sorted}, nil
}

// multipleOf returns k with st = k*dt, k >= 1.
func multipleOf(st, dt float64) (int64, error) {
	if st <= 0 || math.IsNaN(st) || math.IsInf(st, 0) {
		return 0, &InvalidSampleTimeError{SampleTime: st, BaseDt: dt}
	}
	ratio := st / dt
	k := math.Round(ratio)
	if k < 1 || math.Abs(ratio-k) > tolerance(ratio) {
		return 0, &InvalidSampleTimeError{SampleTime: st, BaseDt: dt}
	}
	return int64(k), nil
}

// ActiveTasks returns the tasks due at t, fastest first.
func (s *Scheduler) ActiveTasks(t float64) []*Task {
	var active []*Task
	for _, task := range s.tasks {
		if task.ShouldRun(t) {
			active = append(active, task)
		}
	}
	return active
}

func (s *Scheduler) Tasks() []*Task { return s.tasks }
