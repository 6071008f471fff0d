// Package insights summarizes logged predictions: per-column statistics,
// IQR outliers, and correlations across the numeric columns of a model's log.
package insights

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kavinraja10/lookoutcv/internal/schema"
	"github.com/kavinraja10/lookoutcv/internal/storage"
)

// Dataset holds all rows logged for one model, merged across the per-process
// log files under the model's directory.
type Dataset struct {
	Model  string
	Files  []string
	Fields []schema.Field
	Rows   []map[string]any
}

// Load discovers `<logsDir>/<model>/*_logs_*.parquet` files and loads one
// dataset per model, sorted by model name.
func Load(logsDir string) ([]Dataset, error) {
	pattern := filepath.Join(logsDir, "*", "*_logs_*.parquet")
	files, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("discover log files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no log files found under %s", logsDir)
	}
	sort.Strings(files)

	byModel := make(map[string]*Dataset)
	var order []string
	for _, file := range files {
		model := filepath.Base(filepath.Dir(file))
		ds, ok := byModel[model]
		if !ok {
			ds = &Dataset{Model: model}
			byModel[model] = ds
			order = append(order, model)
		}

		rows, fields, err := storage.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		merged, _ := schema.Reconcile(ds.Fields, fields)
		ds.Fields = merged
		ds.Rows = append(ds.Rows, rows...)
		ds.Files = append(ds.Files, file)
	}

	sort.Strings(order)
	out := make([]Dataset, 0, len(order))
	for _, model := range order {
		out = append(out, *byModel[model])
	}
	return out, nil
}

// NumericColumns returns the dataset's float and integer columns, in field
// order.
func (d *Dataset) NumericColumns() []string {
	var cols []string
	for _, f := range d.Fields {
		if f.Type == schema.TypeFloat || f.Type == schema.TypeInt64 {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// columnValues extracts the non-null numeric values of a column.
func (d *Dataset) columnValues(col string) []float64 {
	var out []float64
	for _, row := range d.Rows {
		if v, ok := numeric(row[col]); ok {
			out = append(out, v)
		}
	}
	return out
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
