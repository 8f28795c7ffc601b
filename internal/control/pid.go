package control

import (
	"math"
	"slices"
	"sort"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// Tunable is implemented by blocks whose scalar parameters can be adjusted
// between steps.
type Tunable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}

var pidTypes = []string{"P", "PI", "PD", "ID", "PID"}

// PIDGains holds the (m,n) gain matrices and optional (m,1) output bounds.
// Gains not needed by the controller type may be nil.
type PIDGains struct {
	Kp, Ki, Kd *mat.Dense
	UMin, UMax *mat.Dense
}

// PID implements
//
//	u[k]     = Kp e[k] + Ki x_i[k] + Kd (e[k] - e[k-1])
//	x_i[k+1] = x_i[k] + e[k] dt
//
// with u and x_i clamped to [UMin, UMax] when bounds are given. The
// integrator clamp only applies when the bounds match the error size.
type PID struct {
	block.Base
	kind       string
	kp, ki, kd *mat.Dense
	umin, umax *mat.Dense
	m, n       int
}

func NewPID(name, controllerType string, g PIDGains) (*PID, error) {
	p := &PID{Base: block.NewBase(name), kind: controllerType}
	p.Inputs().Declare("e")
	p.Outputs().Declare("u")
	p.State().Declare("x_i")
	p.State().Declare("e_prev")

	if !slices.Contains(pidTypes, controllerType) {
		return nil, p.ParamError("controller_type", "must be one of P, PI, PD, ID, PID")
	}
	need := map[string]*mat.Dense{}
	if controllerType != "ID" {
		need["Kp"] = g.Kp
	}
	if controllerType == "PI" || controllerType == "ID" || controllerType == "PID" {
		need["Ki"] = g.Ki
	}
	if controllerType == "PD" || controllerType == "ID" || controllerType == "PID" {
		need["Kd"] = g.Kd
	}
	for _, k := range []string{"Kp", "Ki", "Kd"} {
		if v, ok := need[k]; ok && v == nil {
			return nil, p.ParamError(k, "must be provided for controller_type "+controllerType)
		}
	}

	var ref *mat.Dense
	for _, k := range []*mat.Dense{g.Kp, g.Ki, g.Kd} {
		if k != nil {
			ref = k
			break
		}
	}
	if ref == nil {
		return nil, p.ParamError("Kp", "at least one gain must be provided")
	}
	p.m, p.n = ref.Dims()

	gain := func(param string, k *mat.Dense) (*mat.Dense, error) {
		if k == nil {
			return mat.NewDense(p.m, p.n, nil), nil
		}
		if r, c := k.Dims(); r != p.m || c != p.n {
			return nil, p.ParamError(param, "shape "+signal.ShapeOf(k).String()+" differs from "+signal.ShapeOf(ref).String())
		}
		return mat.DenseCopyOf(k), nil
	}
	var err error
	if p.kp, err = gain("Kp", g.Kp); err != nil {
		return nil, err
	}
	if p.ki, err = gain("Ki", g.Ki); err != nil {
		return nil, err
	}
	if p.kd, err = gain("Kd", g.Kd); err != nil {
		return nil, err
	}
	if p.umin, err = p.bound("u_min", g.UMin); err != nil {
		return nil, err
	}
	if p.umax, err = p.bound("u_max", g.UMax); err != nil {
		return nil, err
	}

	p.Shapes().Fix("e", signal.Shape{Rows: p.n, Cols: 1})
	return p, nil
}

func (p *PID) bound(param string, b *mat.Dense) (*mat.Dense, error) {
	if b == nil {
		return nil, nil
	}
	v, err := signal.Broadcast(b, signal.Shape{Rows: p.m, Cols: 1})
	if err != nil {
		return nil, p.ParamError(param, "must be a scalar or have one entry per output")
	}
	return v, nil
}

// ControllerType returns P, PI, PD, ID or PID.
func (p *PID) ControllerType() string { return p.kind }

func (p *PID) Initialize(t0 float64) error {
	p.ResetRun()
	p.State().Reset("x_i", mat.NewDense(p.n, 1, nil))
	p.State().Reset("e_prev", mat.NewDense(p.n, 1, nil))
	return p.Emit("u", mat.NewDense(p.m, 1, nil))
}

func (p *PID) input() (*mat.Dense, error) {
	e, err := p.RequireInput("e")
	if err != nil {
		return nil, err
	}
	if err := p.CheckShape("e", e); err != nil {
		return nil, err
	}
	return e, nil
}

func clamp(v, lo, hi *mat.Dense) {
	r, _ := v.Dims()
	for i := 0; i < r; i++ {
		x := v.At(i, 0)
		if lo != nil {
			x = math.Max(x, lo.At(i, 0))
		}
		if hi != nil {
			x = math.Min(x, hi.At(i, 0))
		}
		v.Set(i, 0, x)
	}
}

func (p *PID) OutputUpdate(t, dt float64) error {
	e, err := p.input()
	if err != nil {
		return err
	}
	xi := p.State().Get("x_i")
	ePrev := p.State().Get("e_prev")

	u := mat.NewDense(p.m, 1, nil)
	var term mat.Dense
	term.Mul(p.kp, e)
	u.Add(u, &term)
	term.Mul(p.ki, xi)
	u.Add(u, &term)

	var de mat.Dense
	de.Sub(e, ePrev)
	term.Mul(p.kd, &de)
	u.Add(u, &term)

	clamp(u, p.umin, p.umax)
	return p.Emit("u", u)
}

func (p *PID) StateUpdate(t, dt float64) error {
	e, err := p.input()
	if err != nil {
		return err
	}
	xi := mat.DenseCopyOf(p.State().Get("x_i"))
	var step mat.Dense
	step.Scale(dt, e)
	xi.Add(xi, &step)
	if p.m == p.n {
		clamp(xi, p.umin, p.umax)
	}
	p.State().SetNext("x_i", xi)
	p.State().SetNext("e_prev", mat.DenseCopyOf(e))
	return nil
}

// Params returns the tunable scalar gains. Only available for SISO
// controllers.
func (p *PID) Params() map[string]float64 {
	if p.m != 1 || p.n != 1 {
		return nil
	}
	return map[string]float64{
		"Kp": p.kp.At(0, 0),
		"Ki": p.ki.At(0, 0),
		"Kd": p.kd.At(0, 0),
	}
}

// ParamNames lists Params keys in a stable order.
func ParamNames(t Tunable) []string {
	params := t.Params()
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetParam adjusts a SISO gain.
func (p *PID) SetParam(name string, value float64) error {
	if p.m != 1 || p.n != 1 {
		return p.Errorf("live tuning requires a SISO controller")
	}
	switch name {
	case "Kp":
		p.kp.Set(0, 0, value)
	case "Ki":
		p.ki.Set(0, 0, value)
	case "Kd":
		p.kd.Set(0, 0, value)
	default:
		return p.ParamError(name, "unknown parameter")
	}
	return nil
}
