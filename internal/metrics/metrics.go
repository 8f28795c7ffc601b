// Package metrics provides run statistics computed on logged signals.
package metrics

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/sim"
)

var (
	_ sim.Metric = (*ControlEffort)(nil)
	_ sim.Metric = (*Energy)(nil)
	_ sim.Metric = (*RMS)(nil)
	_ sim.Metric = (*Peak)(nil)
	_ sim.Metric = (*Stability)(nil)
)

// DefaultStabilityThreshold bounds a signal considered stable.
const DefaultStabilityThreshold = 1e6

var constructors = map[string]func(signal string) sim.Metric{
	"control_effort": func(s string) sim.Metric { return NewControlEffort(s) },
	"energy":         func(s string) sim.Metric { return NewEnergy(s) },
	"rms":            func(s string) sim.Metric { return NewRMS(s) },
	"peak":           func(s string) sim.Metric { return NewPeak(s) },
	"stability":      func(s string) sim.Metric { return NewStability(s, DefaultStabilityThreshold) },
}

// New builds the metric registered under kind for the given signal key.
func New(kind, signal string) (sim.Metric, error) {
	c, ok := constructors[kind]
	if !ok {
		return nil, errors.Errorf("metrics: unknown metric %q (available: %v)", kind, Names())
	}
	return c(signal), nil
}

func Names() []string {
	out := make([]string, 0, len(constructors))
	for k := range constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
