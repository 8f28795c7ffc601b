package block

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// Params reads raw parameter values, as decoded from a project file, into
// typed values. Every accessor reports a ParameterError naming the block.
type Params struct {
	block  string
	values map[string]any
}

func NewParams(block string, values map[string]any) Params {
	if values == nil {
		values = map[string]any{}
	}
	return Params{block: block, values: values}
}

func (p Params) Has(key string) bool {
	v, ok := p.values[key]
	return ok && v != nil
}

// Raw returns the undecoded value of key.
func (p Params) Raw(key string) any { return p.values[key] }

func (p Params) fail(key, reason string) error {
	return &ParameterError{Block: p.block, Param: key, Reason: reason}
}

// Matrix decodes key as a scalar, vector or matrix. It returns nil when the
// key is absent.
func (p Params) Matrix(key string) (*mat.Dense, error) {
	if !p.Has(key) {
		return nil, nil
	}
	m, err := signal.FromAny(p.values[key])
	if err != nil {
		return nil, p.fail(key, err.Error())
	}
	return m, nil
}

// RequireMatrix is Matrix for mandatory parameters.
func (p Params) RequireMatrix(key string) (*mat.Dense, error) {
	if !p.Has(key) {
		return nil, p.fail(key, "is required")
	}
	return p.Matrix(key)
}

func (p Params) MatrixOr(key string, def *mat.Dense) (*mat.Dense, error) {
	if !p.Has(key) {
		return def, nil
	}
	return p.Matrix(key)
}

func (p Params) Float(key string, def float64) (float64, error) {
	if !p.Has(key) {
		return def, nil
	}
	switch v := p.values[key].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, p.fail(key, fmt.Sprintf("expected a number, got %q", v))
		}
		return f, nil
	}
	return 0, p.fail(key, fmt.Sprintf("expected a number, got %T", p.values[key]))
}

// Int accepts integral numbers only.
func (p Params) Int(key string, def int) (int, error) {
	if !p.Has(key) {
		return def, nil
	}
	f, err := p.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, p.fail(key, fmt.Sprintf("expected an integer, got %g", f))
	}
	return int(f), nil
}

func (p Params) String(key, def string) (string, error) {
	if !p.Has(key) {
		return def, nil
	}
	s, ok := p.values[key].(string)
	if !ok {
		return "", p.fail(key, fmt.Sprintf("expected a string, got %T", p.values[key]))
	}
	return s, nil
}

func (p Params) Bool(key string, def bool) (bool, error) {
	if !p.Has(key) {
		return def, nil
	}
	b, ok := p.values[key].(bool)
	if !ok {
		return false, p.fail(key, fmt.Sprintf("expected a boolean, got %T", p.values[key]))
	}
	return b, nil
}

// Floats decodes a flat list of numbers.
func (p Params) Floats(key string) ([]float64, error) {
	if !p.Has(key) {
		return nil, nil
	}
	list, ok := p.values[key].([]any)
	if !ok {
		return nil, p.fail(key, fmt.Sprintf("expected a list, got %T", p.values[key]))
	}
	out := make([]float64, len(list))
	for i, v := range list {
		f, err := NewParams(p.block, map[string]any{key: v}).Float(key, 0)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Strings decodes a list of strings.
func (p Params) Strings(key string) ([]string, error) {
	if !p.Has(key) {
		return nil, nil
	}
	switch list := p.values[key].(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, len(list))
		for i, v := range list {
			s, ok := v.(string)
			if !ok {
				return nil, p.fail(key, fmt.Sprintf("expected a list of strings, got %T at index %d", v, i))
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, p.fail(key, fmt.Sprintf("expected a list, got %T", p.values[key]))
}

// Only rejects keys outside allowed.
func (p Params) Only(allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	var unknown []string
	for k := range p.values {
		if !ok[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return p.fail(unknown[0], fmt.Sprintf("unknown parameter (allowed: %s)", strings.Join(allowed, ", ")))
}
