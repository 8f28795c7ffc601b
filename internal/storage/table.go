package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/san-kum/blocksim/internal/sim"
)

// Table is a log flattened to scalar columns. Matrix signals expand to one
// column per element, named key[i] for column vectors and key[i,j]
// otherwise. Missing values are NaN.
type Table struct {
	Header []string
	Rows   [][]float64
}

func columnNames(key string, rows, cols int) []string {
	if rows*cols == 1 {
		return []string{key}
	}
	names := make([]string, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if cols == 1 {
				names = append(names, fmt.Sprintf("%s[%d]", key, i))
			} else {
				names = append(names, fmt.Sprintf("%s[%d,%d]", key, i, j))
			}
		}
	}
	return names
}

// Flatten converts a log into a table with "time" as first column.
func Flatten(log *sim.Log) *Table {
	t := &Table{Header: []string{sim.TimeKey}}
	times := log.Times()
	t.Rows = make([][]float64, len(times))
	for n, tm := range times {
		t.Rows[n] = []float64{tm}
	}

	for _, key := range log.SignalKeys() {
		values, _ := log.Get(key)
		rows, cols := 1, 1
		for _, v := range values {
			if v != nil {
				rows, cols = v.Dims()
				break
			}
		}
		t.Header = append(t.Header, columnNames(key, rows, cols)...)
		for n, v := range values {
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					x := math.NaN()
					if v != nil {
						if r, c := v.Dims(); i < r && j < c {
							x = v.At(i, j)
						}
					}
					t.Rows[n] = append(t.Rows[n], x)
				}
			}
		}
	}
	return t
}

// Column returns the values of a named column.
func (t *Table) Column(name string) ([]float64, bool) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(t.Rows))
	for n, row := range t.Rows {
		out[n] = math.NaN()
		if idx < len(row) {
			out[n] = row[idx]
		}
	}
	return out, true
}

func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return errors.Wrap(err, "storage: write header")
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record[:len(row)]); err != nil {
			return errors.Wrap(err, "storage: write row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "storage: flush csv")
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "storage: read csv")
	}
	if len(records) == 0 {
		return nil, errors.New("storage: empty signals file")
	}
	t := &Table{Header: records[0]}
	for n, rec := range records[1:] {
		row := make([]float64, len(rec))
		for i, cell := range rec {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "storage: row %d column %d", n+1, i)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
