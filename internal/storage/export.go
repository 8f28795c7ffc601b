package storage

import (
	"encoding/json"
	"io"
	"math"

	"github.com/pkg/errors"
)

// ExportData is the JSON document of a run. Missing values are null.
type ExportData struct {
	ID      string                `json:"id,omitempty"`
	Project string                `json:"project"`
	Dt      float64               `json:"dt"`
	T       float64               `json:"T"`
	Steps   int                   `json:"steps"`
	Times   []float64             `json:"times"`
	Signals map[string][]*float64 `json:"signals"`
	Metrics map[string]float64    `json:"metrics,omitempty"`
}

// NewExportData builds the document of a stored run from its metadata and
// signal table.
func NewExportData(meta *RunMetadata, table *Table) *ExportData {
	d := &ExportData{
		ID:      meta.ID,
		Project: meta.Project,
		Dt:      meta.Dt,
		T:       meta.T,
		Steps:   len(table.Rows),
		Signals: make(map[string][]*float64, len(table.Header)),
		Metrics: meta.Metrics,
	}
	d.Times, _ = table.Column(table.Header[0])
	for _, name := range table.Header[1:] {
		col, _ := table.Column(name)
		vals := make([]*float64, len(col))
		for i := range col {
			if !math.IsNaN(col[i]) {
				vals[i] = &col[i]
			}
		}
		d.Signals[name] = vals
	}
	return d
}

func ExportJSON(w io.Writer, d *ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(d), "storage: encode json")
}
