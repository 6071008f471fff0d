package output

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/kavinraja10/lookoutcv/internal/insights"
)

// TextFormatter renders reports as aligned tables for terminals.
type TextFormatter struct {
	// MaxOutlierRows caps the printed outlier rows per model; 0 means 20.
	MaxOutlierRows int
}

// Format writes one section per model: summary statistics, flagged outliers,
// and the correlation matrix.
func (f *TextFormatter) Format(w io.Writer, reports []insights.Report) error {
	maxOutliers := f.MaxOutlierRows
	if maxOutliers == 0 {
		maxOutliers = 20
	}

	for i, r := range reports {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "model %s (%d rows across %d files)\n\n", r.Model, r.Rows, r.Files); err != nil {
			return err
		}
		if err := writeSummary(w, r.Summary); err != nil {
			return err
		}
		if err := writeOutliers(w, r.Outliers, maxOutliers); err != nil {
			return err
		}
		if err := writeCorrelation(w, r.Correlation); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(w io.Writer, summaries []insights.ColumnSummary) error {
	if _, err := fmt.Fprintln(w, "Summary statistics:"); err != nil {
		return err
	}
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "  no numeric columns")
		return err
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  column\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax")
	for _, s := range summaries {
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Column, s.Count,
			formatNumber(s.Mean), formatNumber(s.Std), formatNumber(s.Min),
			formatNumber(s.Q1), formatNumber(s.Median), formatNumber(s.Q3),
			formatNumber(s.Max))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func writeOutliers(w io.Writer, outliers []insights.Outlier, maxRows int) error {
	if len(outliers) == 0 {
		if _, err := fmt.Fprintln(w, "Outliers: none detected"); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}

	if _, err := fmt.Fprintf(w, "Outliers: %d rows\n", len(outliers)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  image_name\tpred_class\tflagged columns")
	for i, o := range outliers {
		if i >= maxRows {
			fmt.Fprintf(tw, "  ... %d more\t\t\n", len(outliers)-maxRows)
			break
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n",
			stringCell(o.Row["image_name"]),
			stringCell(o.Row["pred_class"]),
			strings.Join(o.Columns, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func writeCorrelation(w io.Writer, corr insights.Correlation) error {
	if _, err := fmt.Fprintln(w, "Correlation matrix:"); err != nil {
		return err
	}
	if len(corr.Columns) == 0 {
		_, err := fmt.Fprintln(w, "  no numeric columns")
		return err
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  \t%s\n", strings.Join(corr.Columns, "\t"))
	for i, col := range corr.Columns {
		cells := make([]string, 0, len(corr.Columns))
		for j := range corr.Columns {
			cells = append(cells, formatNumber(corr.Matrix[i][j]))
		}
		fmt.Fprintf(tw, "  %s\t%s\n", col, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// formatNumber renders values with three decimals, "-" for NaN.
func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}

func stringCell(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "-"
}
