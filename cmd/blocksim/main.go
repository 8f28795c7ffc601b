package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/config"
	"github.com/san-kum/blocksim/internal/experiment"
	"github.com/san-kum/blocksim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir      string
	verbose      bool
	logFormat    string
	preset       string
	dt           float64
	finalTime    float64
	startTime    float64
	overrides    []string
	logSignals   []string
	noSave       bool
	metricsFile  string
	ensemble     int
	workers      int
	runs         int
	stepsPerTick int
	theme        string
	signals      []string
	output       string
	xSignal      string
	ySignal      string
	settleTol    float64
	tuneParams   []string
	tuneMetric   string
	tuneWorkers  int

	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// addProjectFlags registers the flags shared by every command that loads a
// project.
func addProjectFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use a built-in project instead of a file")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "base time step")
	cmd.Flags().Float64Var(&finalTime, "time", config.DefaultT, "final time T")
	cmd.Flags().Float64Var(&startTime, "t0", 0, "start time")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a block parameter, <block>.<param>=<value>")
	cmd.Flags().StringSliceVar(&logSignals, "log", nil, "signals to record, replacing the project's list")
}

// loadProject reads the project named by --preset or the first argument and
// applies the flags the user set explicitly.
func loadProject(cmd *cobra.Command, args []string) (*config.Project, error) {
	var p *config.Project
	switch {
	case preset != "":
		p = config.GetPreset(preset)
		if p == nil {
			return nil, errors.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	case len(args) > 0:
		var err error
		if p, err = config.Load(args[0]); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("need a project file or --preset")
	}

	if cmd.Flags().Changed("dt") {
		p.Simulation.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		p.Simulation.T = finalTime
	}
	if cmd.Flags().Changed("t0") {
		p.Simulation.T0 = startTime
	}
	if cmd.Flags().Changed("log") {
		p.Simulation.Logging = logSignals
	}
	if len(overrides) > 0 {
		values := make(map[string]any, len(overrides))
		for _, o := range overrides {
			k, v, err := experiment.ParseOverride(o)
			if err != nil {
				return nil, err
			}
			values[k] = v
		}
		var err error
		if p, err = experiment.WithParams(p, values); err != nil {
			return nil, err
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "blocksim",
		Short:         "discrete-time block diagram simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger()
			viz.SetTheme(theme)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(experiment.NewRegistry())
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".blocksim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "scope", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [project.yaml]",
		Short: "run a project and store the logged signals",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProject,
	}
	addProjectFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics of the run to this file")
	runCmd.Flags().IntVar(&ensemble, "ensemble", 0, "run N copies with offset noise seeds")
	runCmd.Flags().IntVar(&workers, "workers", 0, "concurrent ensemble members (default GOMAXPROCS)")

	validateCmd := &cobra.Command{
		Use:   "validate [project.yaml]",
		Short: "check a project and build its model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  validateProject,
	}
	addProjectFlags(validateCmd)

	orderCmd := &cobra.Command{
		Use:   "order [project.yaml]",
		Short: "print the execution order and tasks",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printOrder,
	}
	addProjectFlags(orderCmd)

	liveCmd := &cobra.Command{
		Use:   "live [project.yaml]",
		Short: "run a project with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addProjectFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerTick, "steps-per-frame", 1, "base steps per frame")

	benchCmd := &cobra.Command{
		Use:   "bench [project.yaml]",
		Short: "time repeated runs of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchProject,
	}
	addProjectFlags(benchCmd)
	benchCmd.Flags().IntVar(&runs, "runs", 10, "number of runs")

	tuneCmd := &cobra.Command{
		Use:   "tune [project.yaml]",
		Short: "grid search block parameters against a project metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneProject,
	}
	addProjectFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "swept parameter, <block>.<param>=<lo>:<hi>:<n>")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "", "metric to minimize")
	tuneCmd.Flags().IntVar(&tuneWorkers, "workers", 1, "concurrent runs")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the signals of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&signals, "signal", nil, "columns to plot (default all)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render run signals to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <run_id>.svg)")
	exportSVGCmd.Flags().StringSliceVar(&signals, "signal", nil, "columns to draw (default all)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "statistics and frequency analysis of run signals",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringSliceVar(&signals, "signal", nil, "columns to analyze (default all)")
	analyzeCmd.Flags().Float64Var(&settleTol, "settle", 0.02, "settling band around the final value")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "plot one signal against another",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xSignal, "x", "", "column on the x axis")
	phaseCmd.Flags().StringVar(&ySignal, "y", "", "column on the y axis")
	_ = phaseCmd.MarkFlagRequired("x")
	_ = phaseCmd.MarkFlagRequired("y")

	blocksCmd := &cobra.Command{
		Use:   "blocks",
		Short: "list available block types",
		RunE:  listBlocks,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in projects",
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [preset]",
		Short: "write a built-in project to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  initProject,
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <preset>.yaml)")

	rootCmd.AddCommand(runCmd, validateCmd, orderCmd, liveCmd, benchCmd, tuneCmd,
		listCmd, plotCmd, exportCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd,
		analyzeCmd, phaseCmd, blocksCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
