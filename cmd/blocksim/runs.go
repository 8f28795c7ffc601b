package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/analysis"
	"github.com/san-kum/blocksim/internal/export"
	"github.com/san-kum/blocksim/internal/storage"
	"github.com/spf13/cobra"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tTIME\tT\tDT\tSTEPS\tSIGNALS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%gs\t%gs\t%d\t%d\n",
			run.ID,
			run.Project,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.T,
			run.Dt,
			run.Steps,
			len(run.Signals),
		)
	}
	return w.Flush()
}

// loadRun returns the metadata and signal table of a stored run.
func loadRun(runID string) (*storage.RunMetadata, *storage.Table, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	table, err := st.LoadSignals(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(table.Rows) == 0 {
		return nil, nil, errors.Errorf("run %s has no samples", runID)
	}
	return meta, table, nil
}

// columns resolves the requested column names, defaulting to every signal
// column.
func columns(table *storage.Table, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return table.Header[1:], nil
	}
	for _, name := range requested {
		if _, ok := table.Column(name); !ok {
			return nil, errors.Errorf("no column %q (available: %v)", name, table.Header[1:])
		}
	}
	return requested, nil
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, table, err := loadRun(args[0])
	if err != nil {
		return err
	}
	names, err := columns(table, signals)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("project: %s\n", meta.Project)
	fmt.Printf("samples: %d\n\n", len(table.Rows))

	const maxPlots = 6
	for i, name := range names {
		if i == maxPlots {
			fmt.Printf("(%d more, use --signal)\n", len(names)-maxPlots)
			break
		}
		col, _ := table.Column(name)
		data := finite(col)
		if len(data) == 0 {
			fmt.Printf("%s: no data\n\n", name)
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, &storage.ExportData{
		ID:      meta.ID,
		Project: meta.Project,
		Dt:      meta.Dt,
		T:       meta.T,
		Steps:   meta.Steps,
		Metrics: meta.Metrics,
	})
}

// outputWriter opens --output, or stdout when it is empty.
func outputWriter() (io.WriteCloser, error) {
	if output == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, errors.Wrap(err, "create output file")
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, table, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w, err := outputWriter()
	if err != nil {
		return err
	}
	defer w.Close()
	return storage.ExportJSON(w, storage.NewExportData(meta, table))
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, table, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w, err := outputWriter()
	if err != nil {
		return err
	}
	defer w.Close()
	return table.WriteCSV(w)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, table, err := loadRun(args[0])
	if err != nil {
		return err
	}
	names, err := columns(table, signals)
	if err != nil {
		return err
	}
	times, _ := table.Column(table.Header[0])
	series := make([]export.Series, 0, len(names))
	for _, name := range names {
		col, _ := table.Column(name)
		series = append(series, export.Series{Name: name, Values: col})
	}
	svg := export.SignalsToSVG(times, series, 800, 400)
	if svg == "" {
		return errors.New("nothing to draw")
	}
	path := output
	if path == "" {
		path = meta.ID + ".svg"
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return errors.Wrap(err, "write svg")
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, table, err := loadRun(args[0])
	if err != nil {
		return err
	}
	names, err := columns(table, signals)
	if err != nil {
		return err
	}
	times, _ := table.Column(table.Header[0])

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIGNAL\tMEAN\tSTDDEV\tMIN\tMAX\tFINAL\tSETTLED AT\tDOMINANT HZ")
	for _, name := range names {
		col, _ := table.Column(name)
		s := analysis.Summarize(col)

		settled := "-"
		if ts, ok := analysis.SettlingTime(times, col, settleTol); ok {
			settled = fmt.Sprintf("%gs", ts)
		}
		dominant := "-"
		if f, err := analysis.DominantFrequency(col, meta.Dt); err == nil {
			dominant = fmt.Sprintf("%.4g", f)
		}
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%s\t%s\n",
			name, s.Mean, s.StdDev, s.Min, s.Max, s.Final, settled, dominant)
	}
	return w.Flush()
}

func phasePlot(cmd *cobra.Command, args []string) error {
	_, table, err := loadRun(args[0])
	if err != nil {
		return err
	}
	xs, ok := table.Column(xSignal)
	if !ok {
		return errors.Errorf("no column %q", xSignal)
	}
	ys, ok := table.Column(ySignal)
	if !ok {
		return errors.Errorf("no column %q", ySignal)
	}
	portrait := analysis.NewPhasePortrait(xSignal, xs, ySignal, ys)
	fmt.Printf("%s vs %s (%d points)\n\n", ySignal, xSignal, len(portrait.Points))
	fmt.Print(portrait.ASCII(70, 24))
	return nil
}
