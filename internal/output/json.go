package output

import (
	"encoding/json"
	"io"
	"math"

	"github.com/kavinraja10/lookoutcv/internal/insights"
)

// JSONFormatter outputs reports as a JSON array.
type JSONFormatter struct{}

type jsonReport struct {
	Model       string          `json:"model"`
	Files       int             `json:"files"`
	Rows        int             `json:"rows"`
	Summary     []jsonSummary   `json:"summary"`
	Outliers    []jsonOutlier   `json:"outliers"`
	Correlation jsonCorrelation `json:"correlation"`
}

type jsonSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q1     *float64 `json:"q1"`
	Median *float64 `json:"median"`
	Q3     *float64 `json:"q3"`
	Max    *float64 `json:"max"`
}

type jsonOutlier struct {
	Row     map[string]any `json:"row"`
	Columns []string       `json:"columns"`
}

type jsonCorrelation struct {
	Columns []string     `json:"columns"`
	Matrix  [][]*float64 `json:"matrix"`
}

// Format writes reports as a pretty-printed JSON array. NaN values become
// JSON nulls.
func (f *JSONFormatter) Format(w io.Writer, reports []insights.Report) error {
	items := make([]jsonReport, 0, len(reports))
	for _, r := range reports {
		items = append(items, toJSONReport(r))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func toJSONReport(r insights.Report) jsonReport {
	out := jsonReport{
		Model: r.Model,
		Files: r.Files,
		Rows:  r.Rows,
	}

	out.Summary = make([]jsonSummary, 0, len(r.Summary))
	for _, s := range r.Summary {
		out.Summary = append(out.Summary, jsonSummary{
			Column: s.Column,
			Count:  s.Count,
			Mean:   jsonNumber(s.Mean),
			Std:    jsonNumber(s.Std),
			Min:    jsonNumber(s.Min),
			Q1:     jsonNumber(s.Q1),
			Median: jsonNumber(s.Median),
			Q3:     jsonNumber(s.Q3),
			Max:    jsonNumber(s.Max),
		})
	}

	out.Outliers = make([]jsonOutlier, 0, len(r.Outliers))
	for _, o := range r.Outliers {
		out.Outliers = append(out.Outliers, jsonOutlier{Row: o.Row, Columns: o.Columns})
	}

	out.Correlation = jsonCorrelation{Columns: r.Correlation.Columns}
	for _, row := range r.Correlation.Matrix {
		cells := make([]*float64, 0, len(row))
		for _, v := range row {
			cells = append(cells, jsonNumber(v))
		}
		out.Correlation.Matrix = append(out.Correlation.Matrix, cells)
	}
	return out
}

// jsonNumber converts a value into a JSON-safe pointer; NaN returns nil.
func jsonNumber(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
