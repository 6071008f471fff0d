package output

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/kavinraja10/lookoutcv/internal/insights"
)

func sampleReports() []insights.Report {
	return []insights.Report{
		{
			Model: "resnet",
			Files: 2,
			Rows:  3,
			Summary: []insights.ColumnSummary{
				{Column: "confidence", Count: 3, Mean: 0.5, Std: 0.1, Min: 0.4, Q1: 0.45, Median: 0.5, Q3: 0.55, Max: 0.6},
			},
			Outliers: []insights.Outlier{
				{
					Row:     map[string]any{"image_name": "odd.jpg", "pred_class": "cat", "confidence": 0.01},
					Columns: []string{"confidence"},
				},
			},
			Correlation: insights.Correlation{
				Columns: []string{"confidence", "contrast"},
				Matrix:  [][]float64{{1, math.NaN()}, {math.NaN(), 1}},
			},
		},
	}
}

func TestForFormat(t *testing.T) {
	for _, format := range []string{"", "text", "json", "markdown", "md", "html"} {
		if _, err := ForFormat(format); err != nil {
			t.Errorf("ForFormat(%q): %v", format, err)
		}
	}
	if _, err := ForFormat("yaml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).Format(&buf, sampleReports()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"model resnet", "confidence", "Outliers: 1 rows", "odd.jpg", "Correlation matrix:"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	// NaN correlation cells render as "-".
	if !strings.Contains(out, "-") {
		t.Errorf("expected NaN placeholder in output:\n%s", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, sampleReports()); err != nil {
		t.Fatalf("Format: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded) != 1 || decoded[0]["model"] != "resnet" {
		t.Fatalf("decoded = %v", decoded)
	}

	corr := decoded[0]["correlation"].(map[string]any)
	matrix := corr["matrix"].([]any)
	row := matrix[0].([]any)
	if row[1] != nil {
		t.Fatalf("NaN cell = %v, want null", row[1])
	}
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownFormatter{}).Format(&buf, sampleReports()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "# Model `resnet`") {
		t.Errorf("missing heading:\n%s", out)
	}
	if !strings.Contains(out, "| confidence | 3 |") {
		t.Errorf("missing summary row:\n%s", out)
	}
}

func TestHTMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&HTMLFormatter{}).Format(&buf, sampleReports()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "resnet") {
		t.Errorf("html output missing heading:\n%s", out)
	}
}
