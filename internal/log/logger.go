// Package log provides a gated diagnostic logger for verbose output.
package log

import (
	"fmt"
	"io"
)

// Logger writes verbose diagnostic messages when Enabled is true.
// Output goes to the configured writer (typically stderr).
type Logger struct {
	Enabled bool
	W       io.Writer
}

// New returns a Logger writing to w when enabled is true.
func New(enabled bool, w io.Writer) *Logger {
	return &Logger{Enabled: enabled, W: w}
}

// Printf writes a formatted message to W when Enabled is true.
// It is a no-op on a nil logger, when Enabled is false, or when no
// writer is configured.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || !l.Enabled || l.W == nil {
		return
	}
	_, _ = fmt.Fprintf(l.W, format+"\n", args...)
}
