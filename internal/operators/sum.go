package operators

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"gonum.org/v1/gonum/mat"
)

// Sum computes out = s1*in1 + s2*in2 + ... + sN*inN with si in {+1, -1}.
type Sum struct {
	block.Base
	signs []float64
	ports []string
}

// NewSum creates a sum with one input per sign. When signs is empty,
// numInputs positive inputs are created.
func NewSum(name string, numInputs int, signs []float64) (*Sum, error) {
	s := &Sum{Base: block.NewBase(name)}
	if len(signs) == 0 && numInputs <= 0 {
		return nil, s.ParamError("num_inputs", "either num_inputs or signs must be provided")
	}
	if numInputs <= 0 {
		numInputs = len(signs)
	}
	if len(signs) == 0 {
		signs = make([]float64, numInputs)
		for i := range signs {
			signs[i] = 1
		}
	}
	if len(signs) != numInputs {
		return nil, s.ParamError("signs", fmt.Sprintf("length %d must match num_inputs %d", len(signs), numInputs))
	}
	for _, sg := range signs {
		if sg != 1 && sg != -1 {
			return nil, s.ParamError("signs", "each sign must be +1 or -1")
		}
	}

	s.signs = append([]float64(nil), signs...)
	for i := range signs {
		p := fmt.Sprintf("in%d", i+1)
		s.ports = append(s.ports, p)
		s.Inputs().Declare(p)
	}
	s.Outputs().Declare("out")
	return s, nil
}

// ParseSigns converts a string such as "+-+" into signs.
func ParseSigns(spec string) ([]float64, error) {
	spec = strings.ReplaceAll(spec, "|", "")
	out := make([]float64, 0, len(spec))
	for _, r := range spec {
		switch r {
		case '+':
			out = append(out, 1)
		case '-':
			out = append(out, -1)
		case ' ':
		default:
			return nil, errors.Errorf("operators: invalid sign %q", r)
		}
	}
	return out, nil
}

func (s *Sum) compute() (*mat.Dense, error) {
	var total *mat.Dense
	for i, p := range s.ports {
		u, err := s.RequireInput(p)
		if err != nil {
			return nil, err
		}
		// every operand shares the shape of the first
		if err := s.CheckShape("in", u); err != nil {
			return nil, err
		}
		if total == nil {
			total = mat.DenseCopyOf(u)
			total.Scale(s.signs[i], u)
			continue
		}
		if s.signs[i] > 0 {
			total.Add(total, u)
		} else {
			total.Sub(total, u)
		}
	}
	return total, nil
}

func (s *Sum) Initialize(t0 float64) error {
	s.ResetRun()
	for _, p := range s.ports {
		if s.Inputs().Get(p) == nil {
			return nil
		}
	}
	y, err := s.compute()
	if err != nil {
		return err
	}
	return s.Emit("out", y)
}

func (s *Sum) OutputUpdate(t, dt float64) error {
	y, err := s.compute()
	if err != nil {
		return err
	}
	return s.Emit("out", y)
}
