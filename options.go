package lookoutcv

import (
	"io"
	"os"
	"time"

	"github.com/kavinraja10/lookoutcv/internal/config"
	"github.com/kavinraja10/lookoutcv/internal/imgmetrics"
)

type options struct {
	logsDir       string
	task          Task
	metricNames   []string
	flushEvery    int
	flushInterval time.Duration
	verbose       bool
	verboseW      io.Writer
}

func defaultOptions() options {
	return options{
		logsDir:    config.DefaultLogsDir,
		task:       TaskClassification,
		flushEvery: 1,
		verboseW:   os.Stderr,
	}
}

// Option configures a Logger.
type Option func(*options)

// WithLogsDir sets the root directory for log files.
// The default is "lookout_cv_logs".
func WithLogsDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.logsDir = dir
		}
	}
}

// WithTask sets the prediction shape. The default is classification.
func WithTask(task Task) Option {
	return func(o *options) { o.task = task }
}

// WithMetrics enables image-quality metrics by name or ID ("contrast",
// "IMQ002", ...). Each argument may also be a comma-separated list.
// No metrics are enabled by default.
func WithMetrics(names ...string) Option {
	return func(o *options) {
		for _, raw := range names {
			o.metricNames = append(o.metricNames, imgmetrics.SplitList(raw)...)
		}
	}
}

// WithFlushEvery sets how many buffered records trigger a flush. The default
// of 1 makes every LogPrediction durable before it returns; larger values
// trade durability of the in-memory tail for fewer file rewrites.
func WithFlushEvery(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.flushEvery = n
		}
	}
}

// WithFlushInterval flushes buffered records on a timer in addition to the
// count-based trigger. Zero (the default) disables the timer.
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flushInterval = d
		}
	}
}

// WithVerbose enables diagnostic logging to w (stderr when w is nil).
func WithVerbose(w io.Writer) Option {
	return func(o *options) {
		o.verbose = true
		if w != nil {
			o.verboseW = w
		}
	}
}

// applySettings maps effective config settings onto options.
func applySettings(o *options, s config.Settings) error {
	if s.LogsDir != "" {
		o.logsDir = s.LogsDir
	}
	if s.Task != "" {
		task, err := ParseTask(s.Task)
		if err != nil {
			return err
		}
		o.task = task
	}
	if s.Metrics != nil {
		o.metricNames = append([]string(nil), s.Metrics...)
	}
	if s.Flush.Every > 0 {
		o.flushEvery = s.Flush.Every
	}
	if s.Flush.Interval > 0 {
		o.flushInterval = s.Flush.Interval.Std()
	}
	return nil
}
