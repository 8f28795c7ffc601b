package sim

import "math"

const (
	SolverFixed    = "fixed"
	SolverVariable = "variable"

	ClockInternal = "internal"
	ClockExternal = "external"
)

// Config is the time base of a run.
type Config struct {
	Dt      float64
	T       float64
	T0      float64
	Solver  string
	Logging []string
	Clock   string
}

func DefaultConfig() Config {
	return Config{
		Dt:     0.01,
		T:      10.0,
		T0:     0.0,
		Solver: SolverFixed,
		Clock:  ClockInternal,
	}
}

// Validate checks ranges and enumerations. Empty Solver and Clock mean
// fixed and internal.
func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return configErrorf("dt must be > 0, got %g", c.Dt)
	}
	if math.IsNaN(c.T0) || math.IsInf(c.T0, 0) {
		return configErrorf("t0 must be finite, got %g", c.T0)
	}
	if !(c.T > c.T0) {
		return configErrorf("T must be greater than t0 (T=%g, t0=%g)", c.T, c.T0)
	}
	switch c.Solver {
	case "", SolverFixed, SolverVariable:
	default:
		return configErrorf("solver must be 'fixed' or 'variable', got '%s'", c.Solver)
	}
	switch c.Clock {
	case "", ClockInternal, ClockExternal:
	default:
		return configErrorf("clock must be 'internal' or 'external', got '%s'", c.Clock)
	}
	return nil
}

func (c Config) solver() string {
	if c.Solver == "" {
		return SolverFixed
	}
	return c.Solver
}

func (c Config) clock() string {
	if c.Clock == "" {
		return ClockInternal
	}
	return c.Clock
}
