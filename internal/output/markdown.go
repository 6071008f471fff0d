package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/kavinraja10/lookoutcv/internal/insights"
)

// MarkdownFormatter renders reports as a Markdown document.
type MarkdownFormatter struct{}

// Format writes one Markdown section per model with summary, outlier, and
// correlation tables.
func (f *MarkdownFormatter) Format(w io.Writer, reports []insights.Report) error {
	for _, r := range reports {
		if _, err := io.WriteString(w, renderMarkdown(r)); err != nil {
			return err
		}
	}
	return nil
}

// HTMLFormatter renders the Markdown report through goldmark.
type HTMLFormatter struct{}

// Format converts the Markdown report to an HTML fragment.
func (f *HTMLFormatter) Format(w io.Writer, reports []insights.Report) error {
	var md bytes.Buffer
	for _, r := range reports {
		md.WriteString(renderMarkdown(r))
	}
	if err := goldmark.Convert(md.Bytes(), w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func renderMarkdown(r insights.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Model `%s`\n\n", r.Model)
	fmt.Fprintf(&b, "%d rows across %d log files.\n\n", r.Rows, r.Files)

	b.WriteString("## Summary statistics\n\n")
	if len(r.Summary) == 0 {
		b.WriteString("No numeric columns.\n\n")
	} else {
		b.WriteString("| column | count | mean | std | min | 25% | 50% | 75% | max |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, s := range r.Summary {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
				s.Column, s.Count,
				formatNumber(s.Mean), formatNumber(s.Std), formatNumber(s.Min),
				formatNumber(s.Q1), formatNumber(s.Median), formatNumber(s.Q3),
				formatNumber(s.Max))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Outliers\n\n")
	if len(r.Outliers) == 0 {
		b.WriteString("None detected.\n\n")
	} else {
		fmt.Fprintf(&b, "%d rows flagged.\n\n", len(r.Outliers))
		b.WriteString("| image_name | pred_class | flagged columns |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, o := range r.Outliers {
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				stringCell(o.Row["image_name"]),
				stringCell(o.Row["pred_class"]),
				strings.Join(o.Columns, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Correlation matrix\n\n")
	if len(r.Correlation.Columns) == 0 {
		b.WriteString("No numeric columns.\n\n")
	} else {
		fmt.Fprintf(&b, "| | %s |\n", strings.Join(r.Correlation.Columns, " | "))
		b.WriteString("|" + strings.Repeat(" --- |", len(r.Correlation.Columns)+1) + "\n")
		for i, col := range r.Correlation.Columns {
			cells := make([]string, 0, len(r.Correlation.Columns))
			for j := range r.Correlation.Columns {
				cells = append(cells, formatNumber(r.Correlation.Matrix[i][j]))
			}
			fmt.Fprintf(&b, "| %s | %s |\n", col, strings.Join(cells, " | "))
		}
		b.WriteString("\n")
	}

	return b.String()
}
