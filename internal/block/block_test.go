package block

import (
	"errors"
	"testing"

	"github.com/san-kum/blocksim/internal/signal"
)

func TestPortsDeclarationOrder(t *testing.T) {
	p := NewPorts("in1", "in2")
	p.Declare("in3")
	p.Declare("in1")

	names := p.Names()
	want := []string{"in1", "in2", "in3"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
	if p.Get("in1") != nil {
		t.Error("fresh port should be unset")
	}
}

func TestPortsClear(t *testing.T) {
	p := NewPorts("out")
	p.Set("out", signal.Scalar(1))
	p.Clear()
	if p.Get("out") != nil {
		t.Error("Clear should unset every port")
	}
}

func TestPortsSetUndeclaredPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewPorts().Set("nope", signal.Scalar(1))
}

func TestStateCommit(t *testing.T) {
	s := NewState()
	s.Reset("x", signal.Scalar(1))
	s.SetNext("x", signal.Scalar(2))

	if got := s.Get("x").At(0, 0); got != 1 {
		t.Fatalf("current changed before commit: %v", got)
	}
	s.Commit()
	if got := s.Get("x").At(0, 0); got != 2 {
		t.Errorf("after commit = %v, want 2", got)
	}
}

func TestStateCommitKeepsUnwritten(t *testing.T) {
	s := NewState()
	s.Declare("x")
	s.Commit()
	if s.Get("x") != nil {
		t.Error("unwritten state should stay nil")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestCheckShapeFreezes(t *testing.T) {
	b := NewBase("g")
	if err := b.CheckShape("in", signal.Column(1, 2)); err != nil {
		t.Fatal(err)
	}
	err := b.CheckShape("in", signal.Scalar(1))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	var sm *ShapeMismatchError
	if !errors.As(err, &sm) {
		t.Fatal("expected *ShapeMismatchError")
	}
	if sm.Want != (signal.Shape{Rows: 2, Cols: 1}) || sm.Got != (signal.Shape{Rows: 1, Cols: 1}) {
		t.Errorf("unexpected shapes in %v", sm)
	}

	b.ResetRun()
	if err := b.CheckShape("in", signal.Scalar(1)); err != nil {
		t.Errorf("shape should be free after ResetRun: %v", err)
	}
}

func TestFixedShapeSurvivesReset(t *testing.T) {
	b := NewBase("g")
	b.Shapes().Fix("in", signal.Shape{Rows: 3, Cols: 1})
	b.ResetRun()
	if err := b.CheckShape("in", signal.Scalar(1)); err == nil {
		t.Error("fixed shape should reject a scalar")
	}
}

func TestRequireInput(t *testing.T) {
	b := NewBase("sum")
	b.Inputs().Declare("in1")
	_, err := b.RequireInput("in1")
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected missing input, got %v", err)
	}

	b.Inputs().Set("in1", signal.Scalar(4))
	v, err := b.RequireInput("in1")
	if err != nil || v.At(0, 0) != 4 {
		t.Errorf("RequireInput = %v, %v", v, err)
	}
}

func TestBaseDefaults(t *testing.T) {
	b := NewBase("x")
	if b.IsSource() || !b.DirectFeedthrough() {
		t.Error("unexpected default traits")
	}
	if _, ok := b.SampleTime(); ok {
		t.Error("sample time should be unset")
	}
	b.SetSampleTime(0.5)
	if st, ok := b.SampleTime(); !ok || st != 0.5 {
		t.Errorf("SampleTime() = %v, %v", st, ok)
	}
}

func TestValidSampleTime(t *testing.T) {
	tests := []struct {
		st   float64
		want bool
	}{
		{0.1, true},
		{0, false},
		{-1, false},
	}
	for _, tt := range tests {
		if got := ValidSampleTime(tt.st); got != tt.want {
			t.Errorf("ValidSampleTime(%v) = %v, want %v", tt.st, got, tt.want)
		}
	}
}
