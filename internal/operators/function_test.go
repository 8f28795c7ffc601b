package operators

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// affine returns y = a*u1 + u2 and z = t on every call.
func affine(a float64) Func {
	return func(t, dt float64, in map[string]*mat.Dense) (map[string]*mat.Dense, error) {
		var y mat.Dense
		y.Scale(a, in["u1"])
		y.Add(&y, in["u2"])
		return map[string]*mat.Dense{"y": &y, "z": signal.Scalar(t)}, nil
	}
}

func TestAlgebraicFunction(t *testing.T) {
	f, err := NewAlgebraicFunction("f", affine(2), []string{"u1", "u2"}, []string{"y", "z"})
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Inputs().Names(); len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Fatalf("inputs = %v", got)
	}
	f.Inputs().Set("u1", signal.Column(1, 2))
	f.Inputs().Set("u2", signal.Column(10, 20))
	if err := f.OutputUpdate(0.3, 0.1); err != nil {
		t.Fatal(err)
	}
	y := f.Outputs().Get("y")
	if y.At(0, 0) != 12 || y.At(1, 0) != 24 {
		t.Errorf("y = %v, want [12 24]", mat.Formatted(y))
	}
	if got := f.Outputs().Get("z").At(0, 0); got != 0.3 {
		t.Errorf("z = %v, want 0.3", got)
	}
	if f.IsSource() || !f.DirectFeedthrough() || block.IsStateful(f) {
		t.Error("algebraic function should be a stateless feedthrough block")
	}
}

func TestAlgebraicFunctionInitialize(t *testing.T) {
	f, _ := NewAlgebraicFunction("f", affine(1), []string{"u1", "u2"}, []string{"y", "z"})
	f.Inputs().Set("u1", signal.Scalar(1))
	if err := f.Initialize(0); err != nil {
		t.Fatal(err)
	}
	if f.Outputs().Get("y") != nil {
		t.Error("outputs should stay unset until every input is known")
	}

	f.Inputs().Set("u2", signal.Scalar(2))
	if err := f.Initialize(0); err != nil {
		t.Fatal(err)
	}
	if got := f.Outputs().Get("y").At(0, 0); got != 3 {
		t.Errorf("y = %v, want 3", got)
	}
}

func TestAlgebraicFunctionMissingInput(t *testing.T) {
	f, _ := NewAlgebraicFunction("f", affine(1), []string{"u1", "u2"}, []string{"y", "z"})
	f.Inputs().Set("u1", signal.Scalar(1))
	err := f.OutputUpdate(0, 0.1)

	var mi *block.MissingInputError
	if !errors.As(err, &mi) {
		t.Fatalf("expected MissingInputError, got %v", err)
	}
	if mi.Port != "u2" {
		t.Errorf("missing port = %s, want u2", mi.Port)
	}
}

func TestAlgebraicFunctionMissingOutputKey(t *testing.T) {
	f, _ := NewAlgebraicFunction("f", affine(1), []string{"u1", "u2"}, []string{"y", "w"})
	f.Inputs().Set("u1", signal.Scalar(1))
	f.Inputs().Set("u2", signal.Scalar(1))
	err := f.OutputUpdate(0, 0.1)

	var be *block.Error
	if !errors.As(err, &be) {
		t.Fatalf("expected block error, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing output key 'w'") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestAlgebraicFunctionShapeFreeze(t *testing.T) {
	f, _ := NewAlgebraicFunction("f", affine(1), []string{"u1", "u2"}, []string{"y", "z"})
	f.Inputs().Set("u1", signal.Scalar(1))
	f.Inputs().Set("u2", signal.Scalar(1))
	if err := f.OutputUpdate(0, 0.1); err != nil {
		t.Fatal(err)
	}
	f.Inputs().Set("u1", signal.Column(1, 1))
	f.Inputs().Set("u2", signal.Column(1, 1))
	err := f.OutputUpdate(0.1, 0.1)

	var sm *block.ShapeMismatchError
	if !errors.As(err, &sm) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	if sm.Port != "u1" {
		t.Errorf("port = %s, want u1", sm.Port)
	}
}

func TestAlgebraicFunctionOutputShapeFreeze(t *testing.T) {
	calls := 0
	grow := func(t, dt float64, in map[string]*mat.Dense) (map[string]*mat.Dense, error) {
		calls++
		return map[string]*mat.Dense{"out": mat.NewDense(calls, 1, nil)}, nil
	}
	f, _ := NewAlgebraicFunction("f", grow, []string{"u"}, []string{"out"})
	f.Inputs().Set("u", signal.Scalar(1))
	if err := f.OutputUpdate(0, 0.1); err != nil {
		t.Fatal(err)
	}
	if err := f.OutputUpdate(0.1, 0.1); !errors.Is(err, block.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch on output, got %v", err)
	}
}

func TestAlgebraicFunctionCallError(t *testing.T) {
	fail := func(t, dt float64, in map[string]*mat.Dense) (map[string]*mat.Dense, error) {
		return nil, errors.New("boom")
	}
	f, _ := NewAlgebraicFunction("f", fail, []string{"u"}, []string{"out"})
	f.Inputs().Set("u", signal.Scalar(1))
	err := f.OutputUpdate(0, 0.1)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected wrapped call error, got %v", err)
	}
}

func TestAlgebraicFunctionConstructorErrors(t *testing.T) {
	tests := []struct {
		name     string
		fn       Func
		in, outs []string
		param    string
	}{
		{"nil function", nil, []string{"u"}, []string{"y"}, "function"},
		{"no inputs", affine(1), nil, []string{"y"}, "input_keys"},
		{"no outputs", affine(1), []string{"u"}, nil, "output_keys"},
		{"duplicate input", affine(1), []string{"u", "u"}, []string{"y"}, "input_keys"},
		{"empty output", affine(1), []string{"u"}, []string{""}, "output_keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAlgebraicFunction("f", tt.fn, tt.in, tt.outs)
			var pe *block.ParameterError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParameterError, got %v", err)
			}
			if pe.Param != tt.param {
				t.Errorf("param = %s, want %s", pe.Param, tt.param)
			}
		})
	}
}

func TestBuiltinFuncs(t *testing.T) {
	fns := BuiltinFuncs()
	in := map[string]*mat.Dense{
		"a": signal.Column(3, -4),
		"b": signal.Column(2, 5),
	}
	tests := []struct {
		name string
		want []float64
	}{
		{"product", []float64{6, -20}},
		{"max", []float64{3, 5}},
		{"min", []float64{2, -4}},
		{"norm", []float64{math.Sqrt(54)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := fns[tt.name](0, 0.1, in)
			if err != nil {
				t.Fatal(err)
			}
			if got := signal.Flatten(out["out"]); !approxEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	out, err := fns["abs"](0, 0.1, map[string]*mat.Dense{"a": signal.Column(3, -4)})
	if err != nil {
		t.Fatal(err)
	}
	if got := signal.Flatten(out["out"]); !approxEqual(got, []float64{3, 4}) {
		t.Errorf("abs = %v", got)
	}
	if _, err := fns["abs"](0, 0.1, in); err == nil {
		t.Error("abs should reject more than one input")
	}
	if _, err := fns["product"](0, 0.1, map[string]*mat.Dense{"a": signal.Scalar(1), "b": signal.Column(1, 2)}); err == nil {
		t.Error("product should reject mismatched shapes")
	}
}
