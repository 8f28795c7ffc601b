package sim

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kernel errors. Block failures (missing inputs, shape mismatches, invalid
// parameters) are defined in package block and pass through the kernel
// unchanged.
var (
	// ErrConfiguration indicates invalid wiring or simulation settings.
	ErrConfiguration = errors.New("sim: invalid configuration")

	// ErrAlgebraicLoop indicates a feedback path of direct-feedthrough
	// blocks with no stateful block to break it.
	ErrAlgebraicLoop = errors.New("sim: algebraic loop")

	// ErrInvalidSampleTime indicates a sample time that is not a positive
	// integer multiple of the base step.
	ErrInvalidSampleTime = errors.New("sim: invalid sample time")

	// ErrNotInitialized indicates Step was called before Initialize.
	ErrNotInitialized = errors.New("sim: simulator not initialized")

	// ErrExternalClock indicates Run was called on a simulator driven by an
	// external clock.
	ErrExternalClock = errors.New("sim: simulator is driven by an external clock")
)

type ConfigurationError struct {
	Msg string
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string { return "sim: " + e.Msg }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// AlgebraicLoopError names the blocks left unordered, in insertion order.
type AlgebraicLoopError struct {
	Blocks []string
}

func (e *AlgebraicLoopError) Error() string {
	return "sim: algebraic loop detected among blocks: " + strings.Join(e.Blocks, ", ")
}

func (e *AlgebraicLoopError) Is(target error) bool { return target == ErrAlgebraicLoop }

type InvalidSampleTimeError struct {
	SampleTime float64
	BaseDt     float64
	Block      string
}

func (e *InvalidSampleTimeError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("sim: block '%s' sample time %g is not a positive multiple of dt=%g", e.Block, e.SampleTime, e.BaseDt)
	}
	return fmt.Sprintf("sim: sample time %g is not a positive multiple of dt=%g", e.SampleTime, e.BaseDt)
}

func (e *InvalidSampleTimeError) Is(target error) bool { return target == ErrInvalidSampleTime }
