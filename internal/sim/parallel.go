package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Factory builds the simulator of ensemble member i. Blocks carry run
// state, so every member needs its own model.
type Factory func(i int) (*Simulator, error)

// Ensemble runs independent simulations concurrently, for example the same
// model under different noise seeds. Each simulation stays single-threaded.
type Ensemble struct {
	build   Factory
	numRuns int
	workers int
}

func NewEnsemble(numRuns int, build Factory) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, workers: runtime.GOMAXPROCS(0)}
}

// SetWorkers bounds the number of simulations running at once.
func (e *Ensemble) SetWorkers(n int) {
	if n > 0 {
		e.workers = n
	}
}

// Run returns the logs in member order. The first failure cancels the
// remaining members.
func (e *Ensemble) Run(ctx context.Context) ([]*Log, error) {
	logs := make([]*Log, e.numRuns)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			s, err := e.build(i)
			if err != nil {
				return err
			}
			logs[i], err = s.Run(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return logs, nil
}
