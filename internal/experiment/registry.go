package experiment

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/config"
	"github.com/san-kum/blocksim/internal/control"
	"github.com/san-kum/blocksim/internal/operators"
	"github.com/san-kum/blocksim/internal/signal"
	"github.com/san-kum/blocksim/internal/sim"
	"github.com/san-kum/blocksim/internal/sources"
	"github.com/san-kum/blocksim/internal/systems"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknownBlock is returned for a category/type pair missing from the
// registry.
var ErrUnknownBlock = errors.New("experiment: unknown block type")

// Factory builds a block from decoded parameters.
type Factory func(name string, p block.Params) (block.Block, error)

// Adapter rewrites raw parameters before the factory sees them. dir is the
// project directory.
type Adapter func(params map[string]any, dir string) map[string]any

// Entry describes one block kind.
type Entry struct {
	Category string
	Type     string
	Summary  string
	// Params lists the accepted parameter names. sample_time is accepted
	// by every block.
	Params []string
	New    Factory
	Adapt  Adapter
}

type key struct{ category, typ string }

// Registry maps project block descriptions to constructors. It is filled
// once by NewRegistry and read-only afterwards.
type Registry struct {
	entries     map[key]Entry
	funcs       map[string]operators.Func
	sourceFuncs map[string]sources.SourceFunc
}

// Option configures a Registry under construction.
type Option func(*Registry)

// WithFunction makes fn available to algebraic_function blocks under name.
// It replaces a built-in function of the same name.
func WithFunction(name string, fn operators.Func) Option {
	return func(r *Registry) { r.funcs[name] = fn }
}

// WithSourceFunction makes fn available to function_source blocks under
// name.
func WithSourceFunction(name string, fn sources.SourceFunc) Option {
	return func(r *Registry) { r.sourceFuncs[name] = fn }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:     make(map[key]Entry),
		funcs:       operators.BuiltinFuncs(),
		sourceFuncs: sources.BuiltinFuncs(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, e := range append(builtins(), r.functionBlocks()...) {
		r.entries[key{e.Category, e.Type}] = e
	}
	return r
}

// FunctionNames lists the functions usable by algebraic_function and
// function_source blocks, sorted.
func (r *Registry) FunctionNames() (algebraic, source []string) {
	for n := range r.funcs {
		algebraic = append(algebraic, n)
	}
	for n := range r.sourceFuncs {
		source = append(source, n)
	}
	sort.Strings(algebraic)
	sort.Strings(source)
	return algebraic, source
}

func (r *Registry) Lookup(category, typ string) (Entry, error) {
	e, ok := r.entries[key{category, typ}]
	if !ok {
		return Entry{}, errors.Wrapf(ErrUnknownBlock, "'%s' in category '%s'", typ, category)
	}
	return e, nil
}

// Entries lists every block kind sorted by category then type.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Type < out[j].Type
	})
	return out
}

type sampled interface {
	SetSampleTime(st float64)
}

// Build instantiates the block described by cfg.
func (r *Registry) Build(cfg config.BlockConfig, dir string) (block.Block, error) {
	e, err := r.Lookup(cfg.Category, cfg.Type)
	if err != nil {
		return nil, err
	}
	raw := cfg.Parameters
	if e.Adapt != nil {
		raw = e.Adapt(raw, dir)
	}
	p := block.NewParams(cfg.Name, raw)
	if err := p.Only(append([]string{"sample_time"}, e.Params...)...); err != nil {
		return nil, err
	}

	b, err := e.New(cfg.Name, p)
	if err != nil {
		return nil, err
	}
	if p.Has("sample_time") {
		st, err := p.Float("sample_time", 0)
		if err != nil {
			return nil, err
		}
		if !block.ValidSampleTime(st) {
			return nil, &block.ParameterError{Block: cfg.Name, Param: "sample_time", Reason: "must be a positive finite number"}
		}
		s, ok := b.(sampled)
		if !ok {
			return nil, &block.ParameterError{Block: cfg.Name, Param: "sample_time", Reason: "not supported by this block"}
		}
		s.SetSampleTime(st)
	}
	return b, nil
}

// BuildModel instantiates every block of the project and wires the
// connections.
func (r *Registry) BuildModel(p *config.Project) (*sim.Model, error) {
	m := sim.NewModel(p.Project.Name)
	for _, bc := range p.Diagram.Blocks {
		b, err := r.Build(bc, p.Dir)
		if err != nil {
			return nil, err
		}
		if err := m.AddBlock(b); err != nil {
			return nil, err
		}
	}
	for _, c := range p.Diagram.Connections {
		sb, sp, db, dp, err := c.Endpoints()
		if err != nil {
			return nil, err
		}
		if err := m.Connect(sb, sp, db, dp); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func builtins() []Entry {
	return []Entry{
		{
			Category: "sources", Type: "constant",
			Summary: "constant value",
			Params:  []string{"value"},
			New: func(name string, p block.Params) (block.Block, error) {
				v, err := p.RequireMatrix("value")
				if err != nil {
					return nil, err
				}
				return sources.NewConstant(name, v)
			},
		},
		{
			Category: "sources", Type: "step",
			Summary: "switches from value_before to value_after at start_time",
			Params:  []string{"value_before", "value_after", "start_time"},
			New: func(name string, p block.Params) (block.Block, error) {
				before, err := p.MatrixOr("value_before", signal.Scalar(0))
				if err != nil {
					return nil, err
				}
				after, err := p.RequireMatrix("value_after")
				if err != nil {
					return nil, err
				}
				start, err := p.Float("start_time", 0)
				if err != nil {
					return nil, err
				}
				return sources.NewStep(name, before, after, start)
			},
		},
		{
			Category: "sources", Type: "ramp",
			Summary: "initial_output + slope * max(0, t - start_time)",
			Params:  []string{"slope", "start_time", "initial_output"},
			New: func(name string, p block.Params) (block.Block, error) {
				slope, err := p.RequireMatrix("slope")
				if err != nil {
					return nil, err
				}
				start, err := p.Matrix("start_time")
				if err != nil {
					return nil, err
				}
				initial, err := p.Matrix("initial_output")
				if err != nil {
					return nil, err
				}
				return sources.NewRamp(name, slope, start, initial)
			},
		},
		{
			Category: "sources", Type: "sinusoidal",
			Summary: "amplitude * sin(2 pi frequency t + phase) + offset",
			Params:  []string{"amplitude", "frequency", "offset", "phase"},
			New: func(name string, p block.Params) (block.Block, error) {
				var ms [4]*mat.Dense
				for i, k := range []string{"amplitude", "frequency", "offset", "phase"} {
					m, err := p.Matrix(k)
					if err != nil {
						return nil, err
					}
					ms[i] = m
				}
				return sources.NewSinusoidal(name, ms[0], ms[1], ms[2], ms[3])
			},
		},
		{
			Category: "sources", Type: "white_noise",
			Summary: "seeded Gaussian noise",
			Params:  []string{"mean", "std", "seed"},
			New: func(name string, p block.Params) (block.Block, error) {
				mean, err := p.Matrix("mean")
				if err != nil {
					return nil, err
				}
				std, err := p.Matrix("std")
				if err != nil {
					return nil, err
				}
				seed, err := p.Int("seed", 0)
				if err != nil {
					return nil, err
				}
				if seed < 0 {
					return nil, &block.ParameterError{Block: name, Param: "seed", Reason: "must be non-negative"}
				}
				return sources.NewWhiteNoise(name, mean, std, uint64(seed))
			},
		},
		{
			Category: "sources", Type: "file_source",
			Summary: "plays a CSV column",
			Params:  []string{"file_path", "key", "repeat", "use_time"},
			Adapt:   sources.AdaptParams,
			New: func(name string, p block.Params) (block.Block, error) {
				var opts sources.FileOptions
				var err error
				if opts.Path, err = p.String("file_path", ""); err != nil {
					return nil, err
				}
				if opts.Column, err = p.String("key", ""); err != nil {
					return nil, err
				}
				if opts.Repeat, err = p.Bool("repeat", false); err != nil {
					return nil, err
				}
				if opts.UseTime, err = p.Bool("use_time", false); err != nil {
					return nil, err
				}
				return sources.NewFileSource(name, opts)
			},
		},
		{
			Category: "sources", Type: "manual",
			Summary: "value set interactively",
			Params:  []string{"value"},
			New: func(name string, p block.Params) (block.Block, error) {
				v, err := p.MatrixOr("value", signal.Scalar(0))
				if err != nil {
					return nil, err
				}
				return control.NewManual(name, v)
			},
		},
		{
			Category: "operators", Type: "gain",
			Summary: "scalar or matrix gain",
			Params:  []string{"gain"},
			New: func(name string, p block.Params) (block.Block, error) {
				k, err := p.MatrixOr("gain", signal.Scalar(1))
				if err != nil {
					return nil, err
				}
				return operators.NewGain(name, k)
			},
		},
		{
			Category: "operators", Type: "sum",
			Summary: "signed sum of inputs in1..inN",
			Params:  []string{"num_inputs", "signs"},
			New: func(name string, p block.Params) (block.Block, error) {
				n, err := p.Int("num_inputs", 0)
				if err != nil {
					return nil, err
				}
				var signs []float64
				if s, ok := p.Raw("signs").(string); ok {
					if signs, err = operators.ParseSigns(s); err != nil {
						return nil, &block.ParameterError{Block: name, Param: "signs", Reason: err.Error()}
					}
				} else if signs, err = p.Floats("signs"); err != nil {
					return nil, err
				}
				if n == 0 && len(signs) == 0 {
					n = 2
				}
				return operators.NewSum(name, n, signs)
			},
		},
		{
			Category: "operators", Type: "mux",
			Summary: "stacks inputs into a column",
			Params:  []string{"num_inputs"},
			New: func(name string, p block.Params) (block.Block, error) {
				n, err := p.Int("num_inputs", 2)
				if err != nil {
					return nil, err
				}
				return operators.NewMux(name, n)
			},
		},
		{
			Category: "operators", Type: "saturation",
			Summary: "clips to [u_min, u_max]",
			Params:  []string{"u_min", "u_max"},
			New: func(name string, p block.Params) (block.Block, error) {
				lo, err := p.Matrix("u_min")
				if err != nil {
					return nil, err
				}
				hi, err := p.Matrix("u_max")
				if err != nil {
					return nil, err
				}
				return operators.NewSaturation(name, lo, hi)
			},
		},
		{
			Category: "operators", Type: "discrete_integrator",
			Summary: "Euler integrator",
			Params:  []string{"initial_state", "method"},
			New: func(name string, p block.Params) (block.Block, error) {
				x0, err := p.Matrix("initial_state")
				if err != nil {
					return nil, err
				}
				method, err := p.String("method", "euler forward")
				if err != nil {
					return nil, err
				}
				return operators.NewDiscreteIntegrator(name, x0, method)
			},
		},
		{
			Category: "operators", Type: "discrete_derivator",
			Summary: "backward difference divided by dt",
			Params:  []string{"initial_output"},
			New: func(name string, p block.Params) (block.Block, error) {
				y0, err := p.Matrix("initial_output")
				if err != nil {
					return nil, err
				}
				return operators.NewDiscreteDerivator(name, y0), nil
			},
		},
		{
			Category: "operators", Type: "delay",
			Summary: "N-step delay",
			Params:  []string{"num_delays", "initial_output"},
			New: func(name string, p block.Params) (block.Block, error) {
				n, err := p.Int("num_delays", 1)
				if err != nil {
					return nil, err
				}
				y0, err := p.Matrix("initial_output")
				if err != nil {
					return nil, err
				}
				return operators.NewDelay(name, n, y0)
			},
		},
		{
			Category: "controllers", Type: "pid",
			Summary: "P/PI/PD/ID/PID with saturation",
			Params:  []string{"controller_type", "Kp", "Ki", "Kd", "u_min", "u_max"},
			New: func(name string, p block.Params) (block.Block, error) {
				kind, err := p.String("controller_type", "P")
				if err != nil {
					return nil, err
				}
				var g control.PIDGains
				for _, f := range []struct {
					key string
					dst **mat.Dense
				}{
					{"Kp", &g.Kp}, {"Ki", &g.Ki}, {"Kd", &g.Kd}, {"u_min", &g.UMin}, {"u_max", &g.UMax},
				} {
					if *f.dst, err = p.Matrix(f.key); err != nil {
						return nil, err
					}
				}
				return control.NewPID(name, kind, g)
			},
		},
		{
			Category: "controllers", Type: "state_feedback",
			Summary: "u = G r - K x",
			Params:  []string{"K", "G"},
			New: func(name string, p block.Params) (block.Block, error) {
				k, err := p.RequireMatrix("K")
				if err != nil {
					return nil, err
				}
				g, err := p.Matrix("G")
				if err != nil {
					return nil, err
				}
				return control.NewStateFeedback(name, k, g)
			},
		},
		{
			Category: "systems", Type: "linear_state_space",
			Summary: "x[k+1] = A x + B u, y = C x + D u",
			Params:  []string{"A", "B", "C", "D", "x0", "continuous"},
			New: func(name string, p block.Params) (block.Block, error) {
				var sp systems.StateSpaceParams
				var err error
				for _, f := range []struct {
					key string
					dst **mat.Dense
				}{
					{"A", &sp.A}, {"B", &sp.B}, {"C", &sp.C}, {"D", &sp.D}, {"x0", &sp.X0},
				} {
					if *f.dst, err = p.Matrix(f.key); err != nil {
						return nil, err
					}
				}
				if sp.Continuous, err = p.Bool("continuous", false); err != nil {
					return nil, err
				}
				return systems.NewLinearStateSpace(name, sp)
			},
		},
	}
}

// adaptFunction replaces function_name with the named entry of table. An
// unknown name is left in place for the factory to report.
func adaptFunction[F any](table map[string]F) Adapter {
	return func(params map[string]any, dir string) map[string]any {
		adapted := make(map[string]any, len(params)+1)
		for k, v := range params {
			adapted[k] = v
		}
		name, ok := adapted["function_name"].(string)
		if !ok {
			return adapted
		}
		if fn, found := table[name]; found {
			delete(adapted, "function_name")
			adapted["function"] = fn
		}
		return adapted
	}
}

// resolvedFunction returns the function installed by adaptFunction.
func resolvedFunction[F any](name string, p block.Params) (F, error) {
	var zero F
	if p.Has("function_name") {
		fname, err := p.String("function_name", "")
		if err != nil {
			return zero, err
		}
		return zero, &block.ParameterError{Block: name, Param: "function_name", Reason: fmt.Sprintf("unknown function %q", fname)}
	}
	fn, ok := p.Raw("function").(F)
	if !ok {
		return zero, &block.ParameterError{Block: name, Param: "function_name", Reason: "is required"}
	}
	return fn, nil
}

func (r *Registry) functionBlocks() []Entry {
	return []Entry{
		{
			Category: "sources", Type: "function_source",
			Summary: "out = f(t, dt) for a registered function",
			Params:  []string{"function_name", "function"},
			Adapt:   adaptFunction(r.sourceFuncs),
			New: func(name string, p block.Params) (block.Block, error) {
				fn, err := resolvedFunction[sources.SourceFunc](name, p)
				if err != nil {
					return nil, err
				}
				return sources.NewFunctionSource(name, fn)
			},
		},
		{
			Category: "operators", Type: "algebraic_function",
			Summary: "outputs = g(t, dt, inputs) for a registered function",
			Params:  []string{"function_name", "function", "input_keys", "output_keys"},
			Adapt:   adaptFunction(r.funcs),
			New: func(name string, p block.Params) (block.Block, error) {
				fn, err := resolvedFunction[operators.Func](name, p)
				if err != nil {
					return nil, err
				}
				in, err := p.Strings("input_keys")
				if err != nil {
					return nil, err
				}
				out, err := p.Strings("output_keys")
				if err != nil {
					return nil, err
				}
				if out == nil {
					out = []string{"out"}
				}
				return operators.NewAlgebraicFunction(name, fn, in, out)
			},
		},
	}
}
