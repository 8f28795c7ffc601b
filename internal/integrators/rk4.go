package integrators

import "gonum.org/v1/gonum/mat"

// Derivative is the right-hand side of dx/dt = f(t, x). Implementations must
// not modify x.
type Derivative func(t float64, x *mat.Dense) *mat.Dense

// RK4 is the classic fourth-order Runge-Kutta step. Scratch buffers are
// reused across calls of the same shape.
type RK4 struct {
	k1, k2, k3, k4 *mat.Dense
	scratch        *mat.Dense
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(rows, cols int) {
	if r.scratch != nil {
		sr, sc := r.scratch.Dims()
		if sr == rows && sc == cols {
			return
		}
	}
	r.k1 = mat.NewDense(rows, cols, nil)
	r.k2 = mat.NewDense(rows, cols, nil)
	r.k3 = mat.NewDense(rows, cols, nil)
	r.k4 = mat.NewDense(rows, cols, nil)
	r.scratch = mat.NewDense(rows, cols, nil)
}

// Step advances x by dt and returns a new matrix.
func (r *RK4) Step(f Derivative, x *mat.Dense, t, dt float64) *mat.Dense {
	rows, cols := x.Dims()
	r.ensureScratch(rows, cols)

	r.k1.Copy(f(t, x))

	r.scratch.Scale(dt*0.5, r.k1)
	r.scratch.Add(r.scratch, x)
	r.k2.Copy(f(t+dt*0.5, r.scratch))

	r.scratch.Scale(dt*0.5, r.k2)
	r.scratch.Add(r.scratch, x)
	r.k3.Copy(f(t+dt*0.5, r.scratch))

	r.scratch.Scale(dt, r.k3)
	r.scratch.Add(r.scratch, x)
	r.k4.Copy(f(t+dt, r.scratch))

	result := mat.NewDense(rows, cols, nil)
	dt6 := dt / 6.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum := r.k1.At(i, j) + 2*r.k2.At(i, j) + 2*r.k3.At(i, j) + r.k4.At(i, j)
			result.Set(i, j, x.At(i, j)+dt6*sum)
		}
	}
	return result
}
