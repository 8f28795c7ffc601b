package sim

// FixedStep is the time manager of a fixed-step run: every step advances
// by the base dt, and every sample time must be a multiple of it.
type FixedStep struct {
	dt float64
}

func NewFixedStep(dt float64, sampleTimes []float64) (*FixedStep, error) {
	if dt <= 0 {
		return nil, configErrorf("base time step must be strictly positive, got %g", dt)
	}
	for _, st := range sampleTimes {
		if _, err := multipleOf(st, dt); err != nil {
			return nil, err
		}
	}
	return &FixedStep{dt: dt}, nil
}

// NextDt is the step to take from time t.
func (f *FixedStep) NextDt(t float64) float64 { return f.dt }

// At is the time of step n for a run starting at t0.
func (f *FixedStep) At(t0 float64, n int64) float64 {
	return t0 + float64(n)*f.dt
}
