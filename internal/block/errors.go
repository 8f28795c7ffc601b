package block

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/signal"
)

// Domain errors raised by blocks.
var (
	// ErrMissingInput indicates a required input port was unset when read.
	ErrMissingInput = errors.New("block: missing input")

	// ErrShapeMismatch indicates a port value whose shape differs from the
	// shape first observed on that port.
	ErrShapeMismatch = errors.New("block: shape mismatch")

	// ErrParameter indicates an invalid block parameter.
	ErrParameter = errors.New("block: invalid parameter")
)

type MissingInputError struct {
	Block string
	Port  string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("[%s] input '%s' is not connected or not set", e.Block, e.Port)
}

func (e *MissingInputError) Is(target error) bool { return target == ErrMissingInput }

type ShapeMismatchError struct {
	Block string
	Port  string
	Want  signal.Shape
	Got   signal.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("[%s] port '%s' shape changed: expected %s, got %s", e.Block, e.Port, e.Want, e.Got)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

type ParameterError struct {
	Block  string
	Param  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("[%s] parameter '%s': %s", e.Block, e.Param, e.Reason)
}

func (e *ParameterError) Is(target error) bool { return target == ErrParameter }

// Error is a block-specific failure that fits none of the typed errors above,
// such as incompatible matrix dimensions between a gain and its input.
type Error struct {
	Block string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Block, e.Msg)
}
