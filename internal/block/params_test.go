package block

import (
	"errors"
	"testing"
)

func TestParamsTyped(t *testing.T) {
	p := NewParams("b", map[string]any{
		"k":      2,
		"x":      "0.5",
		"n":      3.0,
		"name":   "euler forward",
		"repeat": true,
		"m":      []any{[]any{1, 2}, []any{3, 4}},
		"signs":  []any{1, -1.0},
	})

	if k, err := p.Float("k", 0); err != nil || k != 2 {
		t.Errorf("Float(k) = %v, %v", k, err)
	}
	if x, err := p.Float("x", 0); err != nil || x != 0.5 {
		t.Errorf("Float(x) = %v, %v", x, err)
	}
	if n, err := p.Int("n", 0); err != nil || n != 3 {
		t.Errorf("Int(n) = %v, %v", n, err)
	}
	if s, _ := p.String("name", ""); s != "euler forward" {
		t.Errorf("String(name) = %q", s)
	}
	if b, _ := p.Bool("repeat", false); !b {
		t.Error("Bool(repeat) = false")
	}
	m, err := p.Matrix("m")
	if err != nil {
		t.Fatal(err)
	}
	if r, c := m.Dims(); r != 2 || c != 2 || m.At(1, 0) != 3 {
		t.Errorf("Matrix(m) = %v", m)
	}
	signs, err := p.Floats("signs")
	if err != nil || len(signs) != 2 || signs[1] != -1 {
		t.Errorf("Floats(signs) = %v, %v", signs, err)
	}
	if v, _ := p.Float("missing", 7); v != 7 {
		t.Errorf("default not applied: %v", v)
	}
	if m, err := p.Matrix("missing"); m != nil || err != nil {
		t.Errorf("Matrix(missing) = %v, %v", m, err)
	}
}

func TestParamsErrors(t *testing.T) {
	p := NewParams("b", map[string]any{"k": "abc", "n": 1.5, "flag": "yes"})
	checks := []error{
		func() error { _, err := p.Float("k", 0); return err }(),
		func() error { _, err := p.Int("n", 0); return err }(),
		func() error { _, err := p.Bool("flag", false); return err }(),
		func() error { _, err := p.RequireMatrix("gain"); return err }(),
		p.Only("k", "n"),
	}
	for i, err := range checks {
		var pe *ParameterError
		if !errors.As(err, &pe) || pe.Block != "b" {
			t.Errorf("check %d: got %v", i, err)
		}
	}
	if err := p.Only("k", "n", "flag"); err != nil {
		t.Errorf("Only() = %v", err)
	}
}
