package sources

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// FileOptions configures a FileSource.
type FileOptions struct {
	// Path of a CSV file with a header row.
	Path string
	// Column is the header name of the played column.
	Column string
	// Repeat restarts from the first sample once the data is exhausted.
	// Without it the source emits zeros past the end.
	Repeat bool
	// UseTime selects the sample whose "time" column is the latest not
	// after t, instead of advancing one row per activation.
	UseTime bool
}

// FileSource plays samples loaded from a CSV file.
type FileSource struct {
	source
	opts    FileOptions
	samples []float64
	times   []float64
	index   int
}

func NewFileSource(name string, opts FileOptions) (*FileSource, error) {
	f := &FileSource{source: newSource(name), opts: opts}
	if opts.UseTime && opts.Repeat {
		return nil, f.ParamError("repeat", "cannot be used when use_time is set")
	}
	if ext := strings.ToLower(filepath.Ext(opts.Path)); ext != ".csv" {
		return nil, f.ParamError("file_path", "unsupported file extension '"+ext+"', expected '.csv'")
	}
	if opts.Column == "" {
		return nil, f.ParamError("key", "is mandatory for CSV input and must be a column name")
	}

	file, err := os.Open(opts.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "[%s] open samples", name)
	}
	defer file.Close()

	if err := f.load(file); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileSource) load(r io.Reader) error {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return errors.Wrapf(err, "[%s] read csv", f.Name())
	}
	if len(rows) < 2 {
		return f.Errorf("loaded file contains no samples")
	}

	header := rows[0]
	col, timeCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case f.opts.Column:
			col = i
		case "time":
			timeCol = i
		}
	}
	if col < 0 {
		return f.Errorf("column '%s' not found in CSV, available columns: %v", f.opts.Column, header)
	}
	if f.opts.UseTime && timeCol < 0 {
		return f.Errorf("use_time requires CSV column 'time'")
	}

	for n, row := range rows[1:] {
		v, err := parseCell(row, col)
		if err != nil {
			return f.Errorf("CSV column '%s' row %d: %v", f.opts.Column, n+1, err)
		}
		f.samples = append(f.samples, v)
		if f.opts.UseTime {
			ts, err := parseCell(row, timeCol)
			if err != nil {
				return f.Errorf("CSV column 'time' row %d: %v", n+1, err)
			}
			if len(f.times) > 0 && ts <= f.times[len(f.times)-1] {
				return f.Errorf("time must be strictly increasing")
			}
			f.times = append(f.times, ts)
		}
	}
	return nil
}

func parseCell(row []string, i int) (float64, error) {
	if i >= len(row) {
		return 0, errors.New("missing value")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil {
		return 0, errors.New("non-numeric value")
	}
	if math.IsNaN(v) {
		return 0, errors.New("NaN value")
	}
	return v, nil
}

// Len is the number of loaded samples.
func (f *FileSource) Len() int { return len(f.samples) }

func (f *FileSource) current() *mat.Dense {
	n := len(f.samples)
	switch {
	case f.index < n:
		return mat.NewDense(1, 1, []float64{f.samples[f.index]})
	case f.opts.Repeat:
		return mat.NewDense(1, 1, []float64{f.samples[f.index%n]})
	}
	return mat.NewDense(1, 1, nil)
}

func (f *FileSource) atTime(t float64) *mat.Dense {
	idx := sort.Search(len(f.times), func(i int) bool { return f.times[i] > t }) - 1
	if idx < 0 {
		idx = 0
	}
	return mat.NewDense(1, 1, []float64{f.samples[idx]})
}

func (f *FileSource) Initialize(t0 float64) error {
	f.ResetRun()
	if f.opts.UseTime {
		return f.Emit("out", f.atTime(t0))
	}
	f.index = 0
	return f.Emit("out", f.current())
}

func (f *FileSource) OutputUpdate(t, dt float64) error {
	if f.opts.UseTime {
		return f.Emit("out", f.atTime(t))
	}
	out := f.current()
	f.index++
	return f.Emit("out", out)
}

// AdaptParams resolves a relative file_path against dir. Other parameters
// pass through untouched; the legacy file_type key is dropped.
func AdaptParams(params map[string]any, dir string) map[string]any {
	adapted := make(map[string]any, len(params))
	for k, v := range params {
		adapted[k] = v
	}
	delete(adapted, "file_type")

	p, ok := adapted["file_path"].(string)
	if !ok || p == "" {
		return adapted
	}
	if !filepath.IsAbs(p) && dir != "" {
		if abs, err := filepath.Abs(filepath.Join(dir, p)); err == nil {
			p = abs
		}
	}
	adapted["file_path"] = p
	return adapted
}
