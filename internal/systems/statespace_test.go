package systems

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

func TestDiscreteAccumulator(t *testing.T) {
	s, err := NewLinearStateSpace("plant", StateSpaceParams{
		A: signal.Scalar(1),
		B: signal.Scalar(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.DirectFeedthrough() {
		t.Fatal("plant without D should not be feedthrough")
	}
	if err := s.Initialize(0); err != nil {
		t.Fatal(err)
	}

	var ys []float64
	for k := 0; k < 4; k++ {
		s.Inputs().Set("u", signal.Scalar(1))
		if err := s.OutputUpdate(float64(k), 1); err != nil {
			t.Fatal(err)
		}
		ys = append(ys, s.Outputs().Get("y").At(0, 0))
		if err := s.StateUpdate(float64(k), 1); err != nil {
			t.Fatal(err)
		}
		s.State().Commit()
	}
	want := []float64{0, 1, 2, 3}
	for i := range want {
		if ys[i] != want[i] {
			t.Errorf("y[%d] = %v, want %v", i, ys[i], want[i])
		}
	}
}

func TestFeedthroughWithD(t *testing.T) {
	s, err := NewLinearStateSpace("plant", StateSpaceParams{
		A: signal.Scalar(0.5),
		B: signal.Scalar(1),
		C: signal.Scalar(1),
		D: signal.Scalar(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !s.DirectFeedthrough() {
		t.Fatal("non-zero D should make the plant feedthrough")
	}
	if err := s.Initialize(0); err != nil {
		t.Fatal(err)
	}
	if err := s.OutputUpdate(0, 1); !errors.Is(err, block.ErrMissingInput) {
		t.Errorf("expected missing input, got %v", err)
	}
	s.Inputs().Set("u", signal.Scalar(3))
	if err := s.OutputUpdate(0, 1); err != nil {
		t.Fatal(err)
	}
	if y := s.Outputs().Get("y").At(0, 0); y != 6 {
		t.Errorf("y = %v, want 6", y)
	}
}

func TestContinuousDecay(t *testing.T) {
	s, err := NewLinearStateSpace("plant", StateSpaceParams{
		A:          signal.Scalar(-1),
		B:          signal.Scalar(0),
		X0:         signal.Scalar(1),
		Continuous: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(0); err != nil {
		t.Fatal(err)
	}
	dt := 0.01
	for k := 0; k < 100; k++ {
		s.Inputs().Set("u", signal.Scalar(0))
		if err := s.StateUpdate(float64(k)*dt, dt); err != nil {
			t.Fatal(err)
		}
		s.State().Commit()
	}
	if x := s.State().Get("x").At(0, 0); math.Abs(x-math.Exp(-1)) > 1e-8 {
		t.Errorf("x(1) = %v, want %v", x, math.Exp(-1))
	}
}

func TestStateSpaceValidation(t *testing.T) {
	tests := []struct {
		name string
		p    StateSpaceParams
	}{
		{"missing B", StateSpaceParams{A: signal.Scalar(1)}},
		{"non-square A", StateSpaceParams{A: mat.NewDense(1, 2, nil), B: signal.Scalar(1)}},
		{"B rows", StateSpaceParams{A: signal.Scalar(1), B: signal.Column(1, 1)}},
		{"C cols", StateSpaceParams{A: signal.Scalar(1), B: signal.Scalar(1), C: mat.NewDense(1, 2, nil)}},
		{"D shape", StateSpaceParams{A: signal.Scalar(1), B: signal.Scalar(1), D: signal.Column(1, 1)}},
		{"x0 shape", StateSpaceParams{A: signal.Scalar(1), B: signal.Scalar(1), X0: signal.Column(1, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLinearStateSpace("plant", tt.p); !errors.Is(err, block.ErrParameter) {
				t.Errorf("expected parameter error, got %v", err)
			}
		})
	}
}
