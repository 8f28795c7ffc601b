package sim

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

type inbound struct {
	src     block.Block
	srcPort string
	dstPort string
}

// Simulator steps a Model over a fixed base time step.
type Simulator struct {
	model  *Model
	cfg    Config
	logger *slog.Logger

	clock       *FixedStep
	sched       *Scheduler
	outputOrder []block.Block
	stateOrder  []block.Block
	wiring      map[string][]inbound

	phase   Phase
	t       float64
	n       int64
	log     *Log
	logKeys []string

	metrics   []Metric
	observers []Observer
}

// New validates cfg and binds it to model. Only the fixed-step solver is
// available.
func New(model *Model, cfg Config) (*Simulator, error) {
	if model == nil {
		return nil, configErrorf("model must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.solver() != SolverFixed {
		return nil, configErrorf("solver '%s' is not supported, only fixed-step simulation is available", cfg.Solver)
	}
	cfg.Solver, cfg.Clock = cfg.solver(), cfg.clock()
	return &Simulator{
		model:   model,
		cfg:     cfg,
		logger:  slog.New(slog.DiscardHandler),
		logKeys: cfg.Logging,
	}, nil
}

// NewWithDt builds a simulator from a bare step. The horizon is given to
// RunUntil.
func NewWithDt(model *Model, dt float64) (*Simulator, error) {
	cfg := DefaultConfig()
	cfg.Dt = dt
	cfg.T = math.Inf(1)
	return New(model, cfg)
}

func (s *Simulator) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Model() *Model  { return s.model }
func (s *Simulator) Config() Config { return s.cfg }
func (s *Simulator) Phase() Phase   { return s.phase }
func (s *Simulator) Time() float64  { return s.t }
func (s *Simulator) Steps() int64   { return s.n }
func (s *Simulator) Log() *Log      { return s.log }
func (s *Simulator) Dt() float64    { return s.cfg.Dt }

func (s *Simulator) Tasks() []*Task {
	if s.sched == nil {
		return nil
	}
	return s.sched.Tasks()
}

// OutputOrder returns the order built by the last Initialize.
func (s *Simulator) OutputOrder() []block.Block { return s.outputOrder }

// StateOrder returns the state-update order built by the last Initialize.
func (s *Simulator) StateOrder() []block.Block { return s.stateOrder }

// SetLogging replaces the signals recorded from the next Initialize on.
func (s *Simulator) SetLogging(keys ...string) { s.logKeys = keys }

// Metrics returns the current value of every metric by name.
func (s *Simulator) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Initialize builds the execution order and the task layout, clears every
// input, and initializes the blocks in output order at t0. Calling it again
// starts a fresh run.
func (s *Simulator) Initialize() error {
	if err := s.model.Validate(); err != nil {
		return err
	}
	outputOrder, stateOrder, err := s.model.ExecutionOrder()
	if err != nil {
		return err
	}
	s.outputOrder, s.stateOrder = outputOrder, stateOrder

	if err := s.buildTasks(); err != nil {
		return err
	}
	s.buildWiring()
	if err := s.checkKeys(); err != nil {
		return err
	}

	s.t, s.n = s.cfg.T0, 0
	for _, task := range s.sched.Tasks() {
		task.Reset(s.cfg.T0)
	}
	for _, b := range s.model.Blocks() {
		b.Inputs().Clear()
	}
	s.log = newLog(s.logKeys)
	for _, m := range s.metrics {
		m.Reset()
	}

	for _, b := range s.outputOrder {
		s.propagate(b)
		if err := b.Initialize(s.cfg.T0); err != nil {
			return err
		}
	}

	s.phase = PhaseInitialized
	s.logger.Debug("simulator initialized",
		"model", s.model.Name(),
		"blocks", len(s.outputOrder),
		"tasks", len(s.sched.Tasks()),
		"dt", s.cfg.Dt,
		"t0", s.cfg.T0)
	return nil
}

func (s *Simulator) buildTasks() error {
	dt := s.cfg.Dt
	groups := make(map[int64][]block.Block)
	var ks []int64
	for _, b := range s.outputOrder {
		st, ok := b.SampleTime()
		if !ok {
			st = dt
		}
		k, err := multipleOf(st, dt)
		if err != nil {
			return &InvalidSampleTimeError{SampleTime: st, BaseDt: dt, Block: b.Name()}
		}
		if _, seen := groups[k]; !seen {
			ks = append(ks, k)
		}
		groups[k] = append(groups[k], b)
	}

	sampleTimes := make([]float64, 0, len(ks))
	tasks := make([]*Task, 0, len(ks))
	for _, k := range ks {
		st := float64(k) * dt
		sampleTimes = append(sampleTimes, st)
		tasks = append(tasks, NewTask(st, groups[k], s.outputOrder, s.stateOrder))
	}

	clock, err := NewFixedStep(dt, sampleTimes)
	if err != nil {
		return err
	}
	sched, err := NewScheduler(dt, tasks)
	if err != nil {
		return err
	}
	s.clock, s.sched = clock, sched
	for _, task := range sched.Tasks() {
		s.logger.Debug("task", "sample_time", task.SampleTime(), "blocks", len(task.OutputBlocks()), "stateful", len(task.StateBlocks()))
	}
	return nil
}

func (s *Simulator) buildWiring() {
	s.wiring = make(map[string][]inbound)
	for _, c := range s.model.Connections() {
		src, _ := s.model.Block(c.SrcBlock)
		s.wiring[c.DstBlock] = append(s.wiring[c.DstBlock], inbound{src: src, srcPort: c.SrcPort, dstPort: c.DstPort})
	}
}

func (s *Simulator) checkKeys() error {
	keys := append([]string(nil), s.logKeys...)
	for _, m := range s.metrics {
		keys = append(keys, m.Signal())
	}
	for _, k := range keys {
		if k == TimeKey {
			continue
		}
		name, port, ok := ParseSignalKey(k)
		if !ok {
			return configErrorf("invalid signal key '%s', expected '<block>.outputs.<port>'", k)
		}
		b, found := s.model.Block(name)
		if !found {
			return configErrorf("signal '%s' refers to unknown block '%s'", k, name)
		}
		if !b.Outputs().Has(port) {
			return configErrorf("signal '%s' refers to unknown output port '%s'", k, port)
		}
	}
	return nil
}

// propagate copies the producers' current outputs into b's inputs.
func (s *Simulator) propagate(b block.Block) {
	for _, in := range s.wiring[b.Name()] {
		b.Inputs().Set(in.dstPort, signal.Clone(in.src.Outputs().Get(in.srcPort)))
	}
}

func (s *Simulator) lookup(key string) *mat.Dense {
	name, port, _ := ParseSignalKey(key)
	b, ok := s.model.Block(name)
	if !ok {
		return nil
	}
	return b.Outputs().Get(port)
}

// Step runs every task due at the current time, records the log entry and
// advances time by one base step.
func (s *Simulator) Step() error {
	if err := s.stepAt(s.t); err != nil {
		return err
	}
	s.n++
	s.t = s.clock.At(s.cfg.T0, s.n)
	return nil
}

// StepAt runs every task due at t, which must not precede the previous
// step. It is the entry point of externally clocked simulations.
func (s *Simulator) StepAt(t float64) error {
	if s.phase == PhaseUninitialized {
		return ErrNotInitialized
	}
	if t+tolerance(s.t) < s.t {
		return configErrorf("external time %g precedes current time %g", t, s.t)
	}
	if err := s.stepAt(t); err != nil {
		return err
	}
	s.n++
	s.t = t
	return nil
}

func (s *Simulator) stepAt(t float64) error {
	if s.phase == PhaseUninitialized {
		return ErrNotInitialized
	}
	s.phase = PhaseStepping

	active := s.sched.ActiveTasks(t)
	for _, task := range active {
		dt := task.Dt(t)
		for _, b := range task.OutputBlocks() {
			s.propagate(b)
			if err := b.OutputUpdate(t, dt); err != nil {
				return err
			}
		}
		for _, b := range task.StateBlocks() {
			s.propagate(b)
			if err := b.StateUpdate(t, dt); err != nil {
				return err
			}
		}
		for _, b := range task.StateBlocks() {
			b.State().Commit()
		}
		task.Advance()
	}

	s.log.record(t, s.lookup)
	for _, m := range s.metrics {
		m.Observe(t, s.lookup(m.Signal()))
	}
	for _, o := range s.observers {
		o.OnStep(t, active)
	}
	return nil
}

// Run initializes and steps until T, recording the configured signals.
func (s *Simulator) Run(ctx context.Context) (*Log, error) {
	if s.cfg.Clock == ClockExternal {
		return nil, ErrExternalClock
	}
	if math.IsInf(s.cfg.T, 1) {
		return nil, configErrorf("no final time configured, use RunUntil")
	}
	return s.RunUntil(ctx, s.cfg.T, s.logKeys...)
}

// RunUntil initializes and steps while t < T. On failure the partial log is
// returned along with the error.
func (s *Simulator) RunUntil(ctx context.Context, T float64, signals ...string) (log *Log, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		for _, o := range s.observers {
			if ro, ok := o.(RunObserver); ok {
				ro.OnRunEnd(s.n, elapsed, err)
			}
		}
		if err != nil {
			s.logger.Error("simulation failed", "model", s.model.Name(), "t", s.t, "steps", s.n, "error", err)
			return
		}
		s.logger.Info("simulation finished", "model", s.model.Name(), "steps", s.n, "elapsed", elapsed)
	}()

	if !(T > s.cfg.T0) {
		return nil, configErrorf("T must be greater than t0 (T=%g, t0=%g)", T, s.cfg.T0)
	}
	s.logKeys = signals
	if err := s.Initialize(); err != nil {
		return nil, err
	}
	s.logger.Info("simulation started", "model", s.model.Name(), "T", T, "dt", s.cfg.Dt, "signals", len(signals))

	for s.t+tolerance(T) < T {
		select {
		case <-ctx.Done():
			return s.log, ctx.Err()
		default:
		}
		if err := s.Step(); err != nil {
			return s.log, err
		}
	}
	s.phase = PhaseFinished
	return s.log, nil
}
