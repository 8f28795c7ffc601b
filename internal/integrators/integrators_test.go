package integrators

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		method string
		want   string
		ft     bool
	}{
		{"euler forward", "euler forward", false},
		{"Euler Backward", "euler backward", true},
		{"", "euler forward", false},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			s, err := Lookup(tt.method)
			if err != nil {
				t.Fatal(err)
			}
			if s.Name() != tt.want || s.DirectFeedthrough() != tt.ft {
				t.Errorf("got %s (feedthrough=%v)", s.Name(), s.DirectFeedthrough())
			}
		})
	}

	if _, err := Lookup("trapezoid"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestEulerForward(t *testing.T) {
	x := mat.NewDense(1, 1, []float64{1})
	u := mat.NewDense(1, 1, []float64{2})
	s := EulerForward{}

	if y := s.Output(x, u, 0.5); y.At(0, 0) != 1 {
		t.Errorf("output = %v, want 1", y.At(0, 0))
	}
	if n := s.Next(x, u, 0.5); n.At(0, 0) != 2 {
		t.Errorf("next = %v, want 2", n.At(0, 0))
	}
	if x.At(0, 0) != 1 {
		t.Error("state mutated")
	}
}

func TestEulerBackward(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{1, 0})
	u := mat.NewDense(2, 1, []float64{2, -4})
	y := EulerBackward{}.Output(x, u, 0.25)
	if y.At(0, 0) != 1.5 || y.At(1, 0) != -1 {
		t.Errorf("output = %v", mat.Formatted(y))
	}
}

func TestRK4Accuracy(t *testing.T) {
	// harmonic oscillator: x' = v, v' = -x
	f := func(_ float64, x *mat.Dense) *mat.Dense {
		return mat.NewDense(2, 1, []float64{x.At(1, 0), -x.At(0, 0)})
	}
	integ := NewRK4()

	x := mat.NewDense(2, 1, []float64{1, 0})
	dt := 0.01
	steps := 100
	for i := 0; i < steps; i++ {
		x = integ.Step(f, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x.At(0, 0)-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x.At(0, 0), expectedX)
	}
	if math.Abs(x.At(1, 0)-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x.At(1, 0), expectedV)
	}
}

func BenchmarkRK4(b *testing.B) {
	f := func(_ float64, x *mat.Dense) *mat.Dense {
		return mat.NewDense(2, 1, []float64{x.At(1, 0), -x.At(0, 0)})
	}
	integrator := NewRK4()
	x := mat.NewDense(2, 1, []float64{1, 0})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(f, x, 0, 0.01)
	}
}
