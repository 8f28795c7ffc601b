package integrators

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Scheme is a discrete integration rule over matrix-valued signals.
type Scheme interface {
	Name() string
	// DirectFeedthrough reports whether Output reads the current input.
	DirectFeedthrough() bool
	// Output is the integrator output for state x and input u.
	Output(x, u *mat.Dense, dt float64) *mat.Dense
	// Next is the state for the following activation.
	Next(x, u *mat.Dense, dt float64) *mat.Dense
}

var ErrUnknownScheme = errors.New("integrators: unknown method")

// Lookup maps a method name such as "euler forward" to its scheme.
// Matching ignores case and surrounding whitespace.
func Lookup(method string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "euler forward", "forward", "":
		return EulerForward{}, nil
	case "euler backward", "backward":
		return EulerBackward{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownScheme, "%q (allowed: 'euler forward', 'euler backward')", method)
}

// Names lists the supported methods.
func Names() []string {
	return []string{EulerForward{}.Name(), EulerBackward{}.Name()}
}

// EulerForward: y[k] = x[k], x[k+1] = x[k] + dt*u[k].
type EulerForward struct{}

func (EulerForward) Name() string            { return "euler forward" }
func (EulerForward) DirectFeedthrough() bool { return false }

func (EulerForward) Output(x, _ *mat.Dense, _ float64) *mat.Dense {
	return mat.DenseCopyOf(x)
}

func (EulerForward) Next(x, u *mat.Dense, dt float64) *mat.Dense {
	return axpy(x, u, dt)
}

// EulerBackward: y[k] = x[k] + dt*u[k], x[k+1] = y[k].
type EulerBackward struct{}

func (EulerBackward) Name() string            { return "euler backward" }
func (EulerBackward) DirectFeedthrough() bool { return true }

func (EulerBackward) Output(x, u *mat.Dense, dt float64) *mat.Dense {
	return axpy(x, u, dt)
}

func (EulerBackward) Next(x, u *mat.Dense, dt float64) *mat.Dense {
	return axpy(x, u, dt)
}

// axpy returns x + a*u in a fresh matrix.
func axpy(x, u *mat.Dense, a float64) *mat.Dense {
	r, c := u.Dims()
	out := mat.NewDense(r, c, nil)
	out.Scale(a, u)
	if x != nil {
		out.Add(out, x)
	}
	return out
}
