package experiment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/config"
	"github.com/san-kum/blocksim/internal/metrics"
	"github.com/san-kum/blocksim/internal/sim"
	"gopkg.in/yaml.v3"
)

// Experiment turns a project into a configured simulator.
type Experiment struct {
	project   *config.Project
	registry  *Registry
	logger    *slog.Logger
	model     *sim.Model
	simulator *sim.Simulator
}

// New prepares an experiment. A nil registry means the built-in one.
func New(p *config.Project, r *Registry) *Experiment {
	if r == nil {
		r = NewRegistry()
	}
	return &Experiment{
		project:  p,
		registry: r,
		logger:   slog.New(slog.DiscardHandler),
	}
}

func (e *Experiment) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Setup builds the model, the simulator and the configured metrics, and
// attaches observers.
func (e *Experiment) Setup(observers ...sim.Observer) error {
	model, err := e.registry.BuildModel(e.project)
	if err != nil {
		return err
	}
	s, err := sim.New(model, e.project.SimulationConfig())
	if err != nil {
		return err
	}
	s.SetLogger(e.logger)
	for _, mc := range e.project.Simulation.Metrics {
		m, err := metrics.New(mc.Kind, mc.Signal)
		if err != nil {
			return err
		}
		s.AddMetric(m)
	}
	for _, o := range observers {
		s.AddObserver(o)
	}
	e.model, e.simulator = model, s
	e.logger.Debug("experiment ready",
		"project", e.project.Project.Name,
		"blocks", len(model.Blocks()),
		"connections", len(model.Connections()))
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Log, error) {
	if e.simulator == nil {
		return nil, errors.New("experiment: not set up")
	}
	return e.simulator.Run(ctx)
}

func (e *Experiment) Project() *config.Project { return e.project }
func (e *Experiment) Model() *sim.Model         { return e.model }

// Simulator returns the underlying simulator, for stepping or adding
// observers. It is nil before Setup.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

// RunEnsemble runs n copies of the project concurrently. Member i offsets
// the seed of every white_noise block by i.
func RunEnsemble(ctx context.Context, p *config.Project, r *Registry, n, workers int) ([]*sim.Log, error) {
	if n < 1 {
		return nil, errors.Errorf("experiment: ensemble size must be >= 1, got %d", n)
	}
	if r == nil {
		r = NewRegistry()
	}
	ens := sim.NewEnsemble(n, func(i int) (*sim.Simulator, error) {
		member := Reseed(p, i)
		model, err := r.BuildModel(member)
		if err != nil {
			return nil, errors.Wrapf(err, "member %d", i)
		}
		return sim.New(model, member.SimulationConfig())
	})
	ens.SetWorkers(workers)
	return ens.Run(ctx)
}

// clone copies p deeply enough that block parameters can be edited.
func clone(p *config.Project) *config.Project {
	cp := *p
	cp.Diagram.Blocks = make([]config.BlockConfig, len(p.Diagram.Blocks))
	for k, b := range p.Diagram.Blocks {
		params := make(map[string]any, len(b.Parameters)+1)
		for pk, pv := range b.Parameters {
			params[pk] = pv
		}
		b.Parameters = params
		cp.Diagram.Blocks[k] = b
	}
	return &cp
}

// Reseed returns a copy of p whose white_noise seeds are offset by i.
func Reseed(p *config.Project, i int) *config.Project {
	cp := clone(p)
	for k := range cp.Diagram.Blocks {
		b := &cp.Diagram.Blocks[k]
		if b.Category == "sources" && b.Type == "white_noise" {
			seed, _ := block.NewParams(b.Name, b.Parameters).Int("seed", 0)
			b.Parameters["seed"] = seed + i
		}
	}
	return cp
}

// WithParams returns a copy of p with block parameters replaced. Keys are
// "<block>.<parameter>"; the block name is everything before the last dot.
func WithParams(p *config.Project, overrides map[string]any) (*config.Project, error) {
	cp := clone(p)
	for k, v := range overrides {
		name, param, err := config.SplitPortRef(k)
		if err != nil {
			return nil, errors.Wrapf(err, "override %q", k)
		}
		b, ok := cp.Block(name)
		if !ok {
			return nil, errors.Errorf("override %q: no block named '%s'", k, name)
		}
		b.Parameters[param] = v
	}
	return cp, nil
}

// ParseOverride splits "<block>.<parameter>=<yaml value>".
func ParseOverride(s string) (string, any, error) {
	k, raw, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return "", nil, errors.Errorf("override %q: expected <block>.<param>=<value>", s)
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return "", nil, errors.Wrapf(err, "override %q", s)
	}
	return strings.TrimSpace(k), v, nil
}
