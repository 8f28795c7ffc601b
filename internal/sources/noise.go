package sources

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// WhiteNoise emits independent Gaussian samples with the given mean and
// standard deviation. The generator is reseeded on every Initialize, so two
// runs of the same model produce identical sequences.
type WhiteNoise struct {
	source
	mean, std *mat.Dense
	seed      uint64
	dist      []distuv.Normal
}

func NewWhiteNoise(name string, mean, std *mat.Dense, seed uint64) (*WhiteNoise, error) {
	w := &WhiteNoise{source: newSource(name), seed: seed}
	if mean == nil {
		mean = mat.NewDense(1, 1, []float64{0})
	}
	if std == nil {
		std = mat.NewDense(1, 1, []float64{1})
	}
	vals, err := w.expand([]string{"mean", "std"}, mean, std)
	if err != nil {
		return nil, err
	}
	w.mean, w.std = vals[0], vals[1]
	n, _ := w.std.Dims()
	for i := 0; i < n; i++ {
		if w.std.At(i, 0) < 0 {
			return nil, w.ParamError("std", "must be non-negative")
		}
	}
	return w, nil
}

func (w *WhiteNoise) reseed() {
	src := rand.NewPCG(w.seed, w.seed^0x9e3779b97f4a7c15)
	n, _ := w.mean.Dims()
	w.dist = make([]distuv.Normal, n)
	for i := range w.dist {
		w.dist[i] = distuv.Normal{Mu: w.mean.At(i, 0), Sigma: w.std.At(i, 0), Src: src}
	}
}

func (w *WhiteNoise) sample() *mat.Dense {
	out := mat.NewDense(len(w.dist), 1, nil)
	for i, d := range w.dist {
		if d.Sigma == 0 {
			out.Set(i, 0, d.Mu)
			continue
		}
		out.Set(i, 0, d.Rand())
	}
	return out
}

func (w *WhiteNoise) Initialize(t0 float64) error {
	w.ResetRun()
	w.reseed()
	return w.Emit("out", w.sample())
}

func (w *WhiteNoise) OutputUpdate(t, dt float64) error {
	return w.Emit("out", w.sample())
}
