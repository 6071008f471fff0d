// Package output renders insight reports as text, JSON, Markdown, or HTML.
package output

import (
	"fmt"
	"io"

	"github.com/kavinraja10/lookoutcv/internal/insights"
)

// Formatter defines the interface for outputting insight reports.
type Formatter interface {
	Format(w io.Writer, reports []insights.Report) error
}

// ForFormat returns the formatter for a user-supplied format name.
func ForFormat(format string) (Formatter, error) {
	switch format {
	case "", "text":
		return &TextFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "markdown", "md":
		return &MarkdownFormatter{}, nil
	case "html":
		return &HTMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (supported: text, json, markdown, html)", format)
	}
}
