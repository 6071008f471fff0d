package insights

import (
	"math"
	"sort"
)

// DefaultIQRMultiplier is the conventional Tukey fence multiplier.
const DefaultIQRMultiplier = 1.5

// ColumnSummary holds descriptive statistics for one numeric column.
type ColumnSummary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Outlier is a logged row flagged by the IQR fences, with the columns whose
// values fell outside them.
type Outlier struct {
	Row     map[string]any
	Columns []string
}

// Correlation is the Pearson correlation matrix over numeric columns.
// Matrix[i][j] is NaN when either column has fewer than two paired values.
type Correlation struct {
	Columns []string
	Matrix  [][]float64
}

// Report bundles the insights for one model.
type Report struct {
	Model       string
	Files       int
	Rows        int
	Summary     []ColumnSummary
	Outliers    []Outlier
	Correlation Correlation
}

// Analyze computes the full report for a dataset. A non-positive iqrMultiplier
// falls back to DefaultIQRMultiplier.
func Analyze(d *Dataset, iqrMultiplier float64) Report {
	if iqrMultiplier <= 0 {
		iqrMultiplier = DefaultIQRMultiplier
	}
	return Report{
		Model:       d.Model,
		Files:       len(d.Files),
		Rows:        len(d.Rows),
		Summary:     Summarize(d),
		Outliers:    Outliers(d, iqrMultiplier),
		Correlation: Correlate(d),
	}
}

// Summarize computes descriptive statistics for each numeric column with at
// least one value.
func Summarize(d *Dataset) []ColumnSummary {
	var out []ColumnSummary
	for _, col := range d.NumericColumns() {
		values := d.columnValues(col)
		if len(values) == 0 {
			continue
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		out = append(out, ColumnSummary{
			Column: col,
			Count:  len(values),
			Mean:   mean(values),
			Std:    sampleStd(values),
			Min:    sorted[0],
			Q1:     quantile(sorted, 0.25),
			Median: quantile(sorted, 0.5),
			Q3:     quantile(sorted, 0.75),
			Max:    sorted[len(sorted)-1],
		})
	}
	return out
}

// Outliers flags rows holding a value outside Q1-k*IQR .. Q3+k*IQR on any
// numeric column.
func Outliers(d *Dataset, k float64) []Outlier {
	type fence struct{ lo, hi float64 }
	fences := make(map[string]fence)
	for _, col := range d.NumericColumns() {
		values := d.columnValues(col)
		if len(values) == 0 {
			continue
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		q1 := quantile(sorted, 0.25)
		q3 := quantile(sorted, 0.75)
		iqr := q3 - q1
		fences[col] = fence{lo: q1 - k*iqr, hi: q3 + k*iqr}
	}

	var out []Outlier
	for _, row := range d.Rows {
		var flagged []string
		for _, col := range d.NumericColumns() {
			f, ok := fences[col]
			if !ok {
				continue
			}
			v, ok := numeric(row[col])
			if !ok {
				continue
			}
			if v < f.lo || v > f.hi {
				flagged = append(flagged, col)
			}
		}
		if len(flagged) > 0 {
			out = append(out, Outlier{Row: row, Columns: flagged})
		}
	}
	return out
}

// Correlate computes the pairwise Pearson correlation over rows where both
// columns have values.
func Correlate(d *Dataset) Correlation {
	cols := d.NumericColumns()
	matrix := make([][]float64, len(cols))
	for i := range cols {
		matrix[i] = make([]float64, len(cols))
		for j := range cols {
			switch {
			case i == j:
				matrix[i][j] = 1
			case j < i:
				matrix[i][j] = matrix[j][i]
			default:
				matrix[i][j] = pearson(d, cols[i], cols[j])
			}
		}
	}
	return Correlation{Columns: cols, Matrix: matrix}
}

func pearson(d *Dataset, a, b string) float64 {
	var xs, ys []float64
	for _, row := range d.Rows {
		x, okX := numeric(row[a])
		y, okY := numeric(row[b])
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}

	mx, my := mean(xs), mean(ys)
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the n-1 (sample) standard deviation.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// quantile interpolates linearly between the two nearest order statistics.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
