package optim

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/config"
	"github.com/san-kum/blocksim/internal/experiment"
	"golang.org/x/sync/errgroup"
)

// GridSearch tries every combination of block parameter values and keeps
// the one minimizing a project metric. Parameter names are
// "<block>.<parameter>".
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: 1}
}

// SetWorkers bounds the number of concurrent runs.
func (g *GridSearch) SetWorkers(n int) {
	if n > 0 {
		g.workers = n
	}
}

// Trial is the outcome of one parameter combination. Err is set when the
// run failed; failed trials never win.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type Result struct {
	Best   map[string]float64
	Value  float64
	Trials []Trial
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func (g *GridSearch) combinations() []map[string]float64 {
	combos := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(combos)*len(g.ranges[depth]))
		for _, c := range combos {
			for _, v := range g.ranges[depth] {
				m := make(map[string]float64, len(c)+1)
				for k, x := range c {
					m[k] = x
				}
				m[name] = v
				next = append(next, m)
			}
		}
		combos = next
	}
	return combos
}

// Search runs the project once per combination. The metric must be one of
// the project's configured metrics, keyed by its name.
func (g *GridSearch) Search(ctx context.Context, base *config.Project, r *experiment.Registry, metricName string) (*Result, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return nil, errors.New("optim: need one value range per parameter")
	}

	combos := g.combinations()
	trials := make([]Trial, len(combos))
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, combo := range combos {
		eg.Go(func() error {
			val, err := g.evaluate(ctx, base, r, combo, metricName)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mu.Lock()
			trials[i] = Trial{Params: combo, Value: val, Err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Value: math.Inf(1), Trials: trials}
	for _, tr := range trials {
		if tr.Err == nil && tr.Value < res.Value {
			res.Value, res.Best = tr.Value, tr.Params
		}
	}
	if res.Best == nil {
		return res, errors.Errorf("optim: no successful trial for metric '%s'", metricName)
	}
	return res, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Project, r *experiment.Registry, combo map[string]float64, metricName string) (float64, error) {
	overrides := make(map[string]any, len(combo))
	for k, v := range combo {
		overrides[k] = v
	}
	p, err := experiment.WithParams(base, overrides)
	if err != nil {
		return 0, err
	}
	exp := experiment.New(p, r)
	if err := exp.Setup(); err != nil {
		return 0, err
	}
	if _, err := exp.Run(ctx); err != nil {
		return 0, err
	}
	val, ok := exp.Simulator().Metrics()[metricName]
	if !ok {
		return 0, errors.Errorf("optim: project has no metric '%s'", metricName)
	}
	if math.IsNaN(val) {
		return 0, errors.Errorf("optim: metric '%s' is NaN", metricName)
	}
	return val, nil
}

// Ranked returns the successful trials ordered by value.
func (r *Result) Ranked() []Trial {
	out := make([]Trial, 0, len(r.Trials))
	for _, tr := range r.Trials {
		if tr.Err == nil {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
