package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/config"
	"github.com/san-kum/blocksim/internal/experiment"
	"github.com/san-kum/blocksim/internal/metrics"
	"github.com/spf13/cobra"
)

func listBlocks(cmd *cobra.Command, args []string) error {
	r := experiment.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTYPE\tPARAMETERS\tDESCRIPTION")
	for _, e := range r.Entries() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Category, e.Type, strings.Join(e.Params, ", "), e.Summary)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	algebraic, source := r.FunctionNames()
	fmt.Printf("\nalgebraic functions: %s\n", strings.Join(algebraic, ", "))
	fmt.Printf("source functions: %s\n", strings.Join(source, ", "))
	fmt.Printf("metrics: %s\n", strings.Join(metrics.Names(), ", "))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBLOCKS\tDT\tT\tSIGNALS")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%g\t%g\t%s\n", name, len(p.Diagram.Blocks),
			p.Simulation.Dt, p.Simulation.T, strings.Join(p.Simulation.Logging, ", "))
	}
	return w.Flush()
}

func initProject(cmd *cobra.Command, args []string) error {
	p := config.GetPreset(args[0])
	if p == nil {
		return errors.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	path := output
	if path == "" {
		path = args[0] + ".yaml"
	}
	if err := config.Save(path, p); err != nil {
		return err
	}
	logger.Info("project written", "path", path, "preset", args[0])
	return nil
}
