package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/san-kum/blocksim/internal/analysis"
	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/experiment"
	"github.com/san-kum/blocksim/internal/optim"
	"github.com/san-kum/blocksim/internal/sim"
	"github.com/san-kum/blocksim/internal/storage"
	"github.com/san-kum/blocksim/internal/telemetry"
	"github.com/san-kum/blocksim/internal/viz"
	"github.com/spf13/cobra"
)

func runProject(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if ensemble > 0 {
		return runEnsemble(p.Project.Name, func() ([]*sim.Log, error) {
			return experiment.RunEnsemble(ctx, p, nil, ensemble, workers)
		})
	}

	reg := prometheus.NewRegistry()
	rec := telemetry.NewRecorder(reg, p.Project.Name)
	exp := experiment.New(p, nil)
	exp.SetLogger(logger)
	if err := exp.Setup(rec); err != nil {
		return err
	}

	fmt.Printf("running %s...\n", p.Project.Name)
	start := time.Now()
	log, runErr := exp.Run(ctx)
	elapsed := time.Since(start)

	if metricsFile != "" {
		if err := telemetry.WriteTextfile(metricsFile, reg); err != nil {
			logger.Warn("could not write metrics file", "path", metricsFile, "error", err)
		}
	}
	if runErr != nil {
		if log != nil && log.Len() > 0 {
			fmt.Printf("failed after %d steps at t=%g\n", log.Len(), log.Times()[log.Len()-1])
		}
		return runErr
	}

	results := exp.Simulator().Metrics()
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d\n", log.Len())
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(p.Project.Name, p.SimulationConfig(), log, results)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	printMetrics(results)
	return nil
}

func printMetrics(results map[string]float64) {
	if len(results) == 0 {
		return
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, results[name])
	}
}

// runEnsemble prints the spread of the final value of every logged signal
// across members.
func runEnsemble(name string, run func() ([]*sim.Log, error)) error {
	fmt.Printf("running %d members of %s...\n", ensemble, name)
	start := time.Now()
	logs, err := run()
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))
	if len(logs) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIGNAL\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, key := range logs[0].SignalKeys() {
		finals := make([]float64, len(logs))
		for i, l := range logs {
			finals[i] = math.NaN()
			if vals := l.Scalars(key); len(vals) > 0 {
				finals[i] = vals[len(vals)-1]
			}
		}
		s := analysis.Summarize(finals)
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\t%.6g\n", key, s.Mean, s.StdDev, s.Min, s.Max)
	}
	return w.Flush()
}

func validateProject(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd, args)
	if err != nil {
		return err
	}
	model, err := experiment.NewRegistry().BuildModel(p)
	if err != nil {
		return err
	}
	if _, _, err := model.ExecutionOrder(); err != nil {
		return err
	}
	fmt.Printf("%s: %d blocks, %d connections, ok\n", p.Project.Name, len(model.Blocks()), len(model.Connections()))
	return nil
}

func category(b block.Block) string {
	switch {
	case b.IsSource():
		return "source"
	case block.IsStateful(b) && !b.DirectFeedthrough():
		return "state"
	}
	return "feedthrough"
}

func printOrder(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd, args)
	if err != nil {
		return err
	}
	exp := experiment.New(p, nil)
	exp.SetLogger(logger)
	if err := exp.Setup(); err != nil {
		return err
	}
	s := exp.Simulator()
	if err := s.Initialize(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tBLOCK\tKIND\tSAMPLE TIME")
	for i, b := range s.OutputOrder() {
		st := "base"
		if v, ok := b.SampleTime(); ok {
			st = strconv.FormatFloat(v, 'g', -1, 64)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, b.Name(), category(b), st)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	state := make([]string, 0, len(s.StateOrder()))
	for _, b := range s.StateOrder() {
		state = append(state, b.Name())
	}
	fmt.Printf("\nstate updates: %s\n", strings.Join(state, ", "))
	fmt.Println("\ntasks:")
	for _, t := range s.Tasks() {
		names := make([]string, 0, len(t.OutputBlocks()))
		for _, b := range t.OutputBlocks() {
			names = append(names, b.Name())
		}
		fmt.Printf("  every %gs: %s\n", t.SampleTime(), strings.Join(names, ", "))
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd, args)
	if err != nil {
		return err
	}
	exp := experiment.New(p, nil)
	if err := exp.Setup(); err != nil {
		return err
	}
	m, err := viz.NewModel(exp.Simulator(), p.Project.Name, p.PlotSignals())
	if err != nil {
		return err
	}
	m.SetStepsPerTick(stepsPerTick)
	return viz.RunLive(m)
}

func benchProject(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd, args)
	if err != nil {
		return err
	}
	if runs < 1 {
		return errors.Errorf("--runs must be >= 1, got %d", runs)
	}
	exp := experiment.New(p, nil)
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx := context.Background()
	var steps int
	var total time.Duration
	best := time.Duration(1<<63 - 1)
	for i := 0; i < runs; i++ {
		start := time.Now()
		log, err := exp.Run(ctx)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		total += elapsed
		best = min(best, elapsed)
		steps = log.Len()
	}

	avg := total / time.Duration(runs)
	fmt.Printf("project: %s\n", p.Project.Name)
	fmt.Printf("blocks: %d\n", len(exp.Model().Blocks()))
	fmt.Printf("runs: %d, steps per run: %d\n", runs, steps)
	fmt.Printf("mean: %v, best: %v\n", avg, best)
	if avg > 0 {
		fmt.Printf("throughput: %.0f steps/sec\n", float64(steps)/avg.Seconds())
	}
	for _, t := range exp.Simulator().Tasks() {
		fmt.Printf("  task %gs: %d activations per run\n", t.SampleTime(), t.Activations())
	}
	return nil
}

// parseSweep reads "<block>.<param>=<lo>:<hi>:<n>".
func parseSweep(s string) (string, []float64, error) {
	name, spec, ok := strings.Cut(s, "=")
	parts := strings.Split(spec, ":")
	if !ok || len(parts) != 3 {
		return "", nil, errors.Errorf("invalid --param %q, expected <block>.<param>=<lo>:<hi>:<n>", s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, errors.Wrapf(err, "--param %q", s)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, errors.Wrapf(err, "--param %q", s)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, errors.Errorf("--param %q: count must be a positive integer", s)
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func tuneProject(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd, args)
	if err != nil {
		return err
	}
	if tuneMetric == "" {
		return errors.New("--metric is required")
	}
	names := make([]string, 0, len(tuneParams))
	ranges := make([][]float64, 0, len(tuneParams))
	for _, s := range tuneParams {
		name, values, err := parseSweep(s)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	g := optim.NewGridSearch(names, ranges)
	g.SetWorkers(tuneWorkers)
	res, err := g.Search(context.Background(), p, nil, tuneMetric)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(names, "\t")+"\t"+strings.ToUpper(tuneMetric))
	ranked := res.Ranked()
	for _, tr := range ranked[:min(10, len(ranked))] {
		cells := make([]string, 0, len(names)+1)
		for _, n := range names {
			cells = append(cells, strconv.FormatFloat(tr.Params[n], 'g', 6, 64))
		}
		cells = append(cells, strconv.FormatFloat(tr.Value, 'g', 6, 64))
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed := len(res.Trials) - len(ranked); failed > 0 {
		logger.Warn("some trials failed", "count", failed)
	}
	return nil
}
