package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/operators"
	"github.com/san-kum/blocksim/internal/signal"
	"github.com/san-kum/blocksim/internal/sim"
	"github.com/san-kum/blocksim/internal/sources"
	"gonum.org/v1/gonum/mat"
)

func stepSource() block.Block {
	s, err := sources.NewStep("step", signal.Scalar(0), signal.Scalar(1), 0.1)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func add(m *sim.Model, bs ...block.Block) {
	for _, b := range bs {
		Expect(m.AddBlock(b)).To(Succeed())
	}
}

func run(m *sim.Model, dt, T float64, signals ...string) *sim.Log {
	cfg := sim.DefaultConfig()
	cfg.Dt, cfg.T, cfg.Logging = dt, T, signals
	s, err := sim.New(m, cfg)
	Expect(err).NotTo(HaveOccurred())
	log, err := s.Run(context.Background())
	Expect(err).NotTo(HaveOccurred())
	return log
}

// reshaper emits a scalar and switches to a 2x1 column from t >= at.
type reshaper struct {
	block.Base
	at float64
}

func newReshaper(name string, at float64) *reshaper {
	r := &reshaper{Base: block.NewBase(name), at: at}
	r.Outputs().Declare("out")
	return r
}

func (r *reshaper) IsSource() bool          { return true }
func (r *reshaper) DirectFeedthrough() bool { return false }

func (r *reshaper) Initialize(t0 float64) error {
	r.ResetRun()
	return r.OutputUpdate(t0, 0)
}

func (r *reshaper) OutputUpdate(t, dt float64) error {
	if t >= r.at-1e-9 {
		r.Outputs().Set("out", signal.Column(1, 1))
		return nil
	}
	r.Outputs().Set("out", signal.Scalar(1))
	return nil
}

var _ = Describe("Simulator", func() {
	var m *sim.Model

	BeforeEach(func() {
		m = sim.NewModel("scenario")
	})

	Describe("a step into a forward Euler integrator", func() {
		It("lags the input by one step", func() {
			integ, err := operators.NewDiscreteIntegrator("integ", nil, "euler forward")
			Expect(err).NotTo(HaveOccurred())
			add(m, stepSource(), integ)
			Expect(m.Connect("step", "out", "integ", "in")).To(Succeed())

			log := run(m, 0.1, 0.4, "integ.outputs.out")
			Expect(log.Times()).To(HaveLen(4))
			Expect(log.Scalars("integ.outputs.out")).To(HaveExactElements(
				BeNumerically("~", 0.0, 1e-12),
				BeNumerically("~", 0.0, 1e-12),
				BeNumerically("~", 0.1, 1e-12),
				BeNumerically("~", 0.2, 1e-12),
			))
		})
	})

	Describe("a step into a derivator", func() {
		It("spikes by 1/dt at the step instant", func() {
			add(m, stepSource(), operators.NewDiscreteDerivator("der", nil))
			Expect(m.Connect("step", "out", "der", "in")).To(Succeed())

			log := run(m, 0.1, 0.4, "der.outputs.out")
			Expect(log.Scalars("der.outputs.out")).To(HaveExactElements(
				BeNumerically("~", 0.0, 1e-9),
				BeNumerically("~", 10.0, 1e-9),
				BeNumerically("~", 0.0, 1e-9),
				BeNumerically("~", 0.0, 1e-9),
			))
		})
	})

	Describe("a cycle of gains", func() {
		It("is rejected as an algebraic loop", func() {
			a, _ := operators.NewGain("A", signal.Scalar(2))
			b, _ := operators.NewGain("B", signal.Scalar(3))
			add(m, a, b)
			Expect(m.Connect("A", "out", "B", "in")).To(Succeed())
			Expect(m.Connect("B", "out", "A", "in")).To(Succeed())

			_, _, err := m.BuildExecutionOrder()
			var loop *sim.AlgebraicLoopError
			Expect(err).To(BeAssignableToTypeOf(loop))
			Expect(err).To(MatchError(sim.ErrAlgebraicLoop))
		})

		It("runs once an integrator closes the loop", func() {
			ref, _ := sources.NewConstant("ref", signal.Scalar(1))
			sum, _ := operators.NewSum("err", 2, []float64{1, -1})
			gain, _ := operators.NewGain("k", signal.Scalar(5))
			integ, _ := operators.NewDiscreteIntegrator("plant", signal.Scalar(0), "")
			add(m, sum, gain, integ, ref)
			Expect(m.Connect("ref", "out", "err", "in1")).To(Succeed())
			Expect(m.Connect("plant", "out", "err", "in2")).To(Succeed())
			Expect(m.Connect("err", "out", "k", "in")).To(Succeed())
			Expect(m.Connect("k", "out", "plant", "in")).To(Succeed())

			log := run(m, 0.01, 2, "plant.outputs.out")
			y := log.Scalars("plant.outputs.out")
			Expect(y[len(y)-1]).To(BeNumerically("~", 1.0, 1e-3))
		})
	})

	Describe("an unconnected sum input", func() {
		It("fails with the missing port", func() {
			c, _ := sources.NewConstant("c", signal.Scalar(1))
			sum, _ := operators.NewSum("sum", 2, nil)
			add(m, c, sum)
			Expect(m.Connect("c", "out", "sum", "in1")).To(Succeed())

			s, err := sim.NewWithDt(m, 0.1)
			Expect(err).NotTo(HaveOccurred())
			_, err = s.RunUntil(context.Background(), 1)
			var missing *block.MissingInputError
			Expect(errors.As(err, &missing)).To(BeTrue())
			Expect(missing.Block).To(Equal("sum"))
			Expect(missing.Port).To(Equal("in2"))
			Expect(err).To(MatchError(block.ErrMissingInput))
		})
	})

	Describe("determinism", func() {
		It("produces identical logs on every run", func() {
			noise, err := sources.NewWhiteNoise("noise", signal.Scalar(0), signal.Scalar(1), 42)
			Expect(err).NotTo(HaveOccurred())
			integ, _ := operators.NewDiscreteIntegrator("integ", nil, "")
			add(m, noise, integ)
			Expect(m.Connect("noise", "out", "integ", "in")).To(Succeed())

			s, err := sim.New(m, sim.Config{Dt: 0.01, T: 1, Logging: []string{"integ.outputs.out", "noise.outputs.out"}})
			Expect(err).NotTo(HaveOccurred())
			first, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			second, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			for _, key := range first.SignalKeys() {
				Expect(second.Scalars(key)).To(Equal(first.Scalars(key)))
			}
		})
	})

	Describe("shape freeze", func() {
		It("rejects a reshaped input", func() {
			g, _ := operators.NewGain("g", signal.Scalar(2))
			add(m, newReshaper("src", 0.2), g)
			Expect(m.Connect("src", "out", "g", "in")).To(Succeed())

			s, err := sim.NewWithDt(m, 0.1)
			Expect(err).NotTo(HaveOccurred())
			log, err := s.RunUntil(context.Background(), 1, "g.outputs.out")
			Expect(err).To(MatchError(block.ErrShapeMismatch))
			Expect(log.Len()).To(Equal(2))
		})
	})

	Describe("multi-rate tasks", func() {
		DescribeTable("run only on multiples of their period",
			func(k int) {
				dt := 0.05
				c, _ := sources.NewConstant("slow", signal.Scalar(1))
				c.SetSampleTime(float64(k) * dt)
				fast, _ := sources.NewConstant("fast", signal.Scalar(1))
				add(m, fast, c)

				s, err := sim.NewWithDt(m, dt)
				Expect(err).NotTo(HaveOccurred())
				rec := &activations{}
				s.AddObserver(rec)
				_, err = s.RunUntil(context.Background(), 1)
				Expect(err).NotTo(HaveOccurred())

				steps := int(math.Round(1 / dt))
				Expect(rec.slow).To(HaveLen(steps))
				for n, ran := range rec.slow {
					Expect(ran).To(Equal(n%k == 0), "step %d", n)
				}
			},
			Entry("k=1", 1),
			Entry("k=2", 2),
			Entry("k=3", 3),
			Entry("k=7", 7),
		)
	})

	Describe("two-phase updates", func() {
		It("keeps state and outputs separate", func() {
			integ, _ := operators.NewDiscreteIntegrator("integ", signal.Scalar(1), "")
			integ.Inputs().Set("in", signal.Scalar(2))
			Expect(integ.Initialize(0)).To(Succeed())

			for i := 0; i < 3; i++ {
				Expect(integ.OutputUpdate(0, 0.1)).To(Succeed())
			}
			Expect(integ.State().Get("x").At(0, 0)).To(Equal(1.0))

			out := mat.DenseCopyOf(integ.Outputs().Get("out"))
			Expect(integ.StateUpdate(0, 0.1)).To(Succeed())
			Expect(mat.Equal(integ.Outputs().Get("out"), out)).To(BeTrue())
			Expect(integ.State().Get("x").At(0, 0)).To(Equal(1.0))

			integ.State().Commit()
			Expect(integ.State().Get("x").At(0, 0)).To(BeNumerically("~", 1.2, 1e-12))
		})
	})

	Describe("ensembles", func() {
		It("runs independent members with their own seeds", func() {
			e := sim.NewEnsemble(4, func(i int) (*sim.Simulator, error) {
				m := sim.NewModel("member")
				noise, err := sources.NewWhiteNoise("noise", signal.Scalar(0), signal.Scalar(1), uint64(i))
				if err != nil {
					return nil, err
				}
				if err := m.AddBlock(noise); err != nil {
					return nil, err
				}
				return sim.New(m, sim.Config{Dt: 0.1, T: 1, Logging: []string{"noise.outputs.out"}})
			})
			e.SetWorkers(2)
			logs, err := e.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(logs).To(HaveLen(4))
			for _, l := range logs {
				Expect(l.Len()).To(Equal(10))
			}
			Expect(logs[0].Scalars("noise.outputs.out")).NotTo(Equal(logs[1].Scalars("noise.outputs.out")))
		})
	})
})

type activations struct {
	slow []bool
}

func (a *activations) OnStep(t float64, active []*sim.Task) {
	ran := false
	for _, task := range active {
		for _, b := range task.OutputBlocks() {
			if b.Name() == "slow" {
				ran = true
			}
		}
	}
	a.slow = append(a.slow, ran)
}
