// Package lookoutcv logs computer-vision model predictions to append-only
// columnar files for production monitoring.
//
// Each model gets a Logger. Every prediction is enriched with the enabled
// image-quality metrics and appended to a parquet log partitioned per model
// and per OS process:
//
//	lookout_cv_logs/<model>/<model>_logs_<pid>.parquet
//
// The log schema evolves: enabling a new metric against an existing log
// widens the file, backfilling the new column with nulls, so readers of old
// rows keep working. The companion lookoutcv CLI reads the logs back and
// reports summary statistics, outliers, and correlations.
package lookoutcv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kavinraja10/lookoutcv/internal/config"
	"github.com/kavinraja10/lookoutcv/internal/imgmetrics"
	ilog "github.com/kavinraja10/lookoutcv/internal/log"
	"github.com/kavinraja10/lookoutcv/internal/schema"
	"github.com/kavinraja10/lookoutcv/internal/storage"
)

// Box is an axis-aligned bounding box in pixel coordinates.
type Box = imgmetrics.Box

// SchemaRegistryFile is the name of the per-logs-dir schema registry database.
const SchemaRegistryFile = "schema.db"

// Prediction is one model output to log. Image is optional; without it,
// image-requiring metrics are recorded as nulls.
type Prediction struct {
	ImageName  string
	Class      string
	Confidence float32
	// Box is required for detection loggers and ignored otherwise.
	Box   *Box
	Image imgmetrics.Source
}

// Logger records predictions for a single model. Methods are safe for
// concurrent use; partition across processes is by pid in the file name.
type Logger struct {
	model   string
	task    Task
	metrics []imgmetrics.Definition
	writer  *storage.Writer
	vlog    *ilog.Logger

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New creates a logger for the named model, reconciling its field set with
// the schemas previously persisted for the model and opening (evolving if
// needed) this process's log file.
func New(model string, opts ...Option) (*Logger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newLogger(model, o)
}

// NewFromConfig is New with settings taken from a .lookoutcv.yml file.
// An empty configPath discovers the file by walking up from the working
// directory. Explicit options are applied on top of the file's settings.
func NewFromConfig(model, configPath string, opts ...Option) (*Logger, error) {
	if configPath == "" {
		found, err := config.Discover(".")
		if err != nil {
			return nil, fmt.Errorf("discover config: %w", err)
		}
		configPath = found
	}

	var loaded *config.Config
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		loaded = cfg
	}
	merged := config.Merge(config.Defaults(), loaded)

	o := defaultOptions()
	if err := applySettings(&o, config.Effective(merged, model)); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(&o)
	}
	return newLogger(model, o)
}

func newLogger(model string, o options) (*Logger, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if strings.ContainsAny(model, `/\`) {
		return nil, fmt.Errorf("model name %q must not contain path separators", model)
	}

	defs, err := imgmetrics.Resolve(o.metricNames)
	if err != nil {
		return nil, err
	}

	fieldNames := []string{schema.FieldRecordID, schema.FieldLoggedAt}
	fieldNames = append(fieldNames, o.task.mandatoryFields()...)
	for _, def := range defs {
		fieldNames = append(fieldNames, imgmetrics.ColumnName(def))
	}
	desired := schema.FieldsFor(fieldNames)

	modelDir := filepath.Join(o.logsDir, model)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	vlog := ilog.New(o.verbose, o.verboseW)

	fields, err := persistSchema(o.logsDir, model, desired, vlog)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(modelDir, fmt.Sprintf("%s_logs_%d.parquet", model, os.Getpid()))
	writer, err := storage.NewWriter(path, model, fields,
		storage.WithFlushEvery(o.flushEvery),
		storage.WithLogger(vlog))
	if err != nil {
		return nil, err
	}

	l := &Logger{
		model:   model,
		task:    o.task,
		metrics: defs,
		writer:  writer,
		vlog:    vlog,
		stop:    make(chan struct{}),
	}

	if o.flushInterval > 0 {
		l.wg.Add(1)
		go l.flushLoop(o.flushInterval)
	}
	return l, nil
}

// persistSchema merges the desired fields into the registry entry for the
// model and returns the union. The registry is opened briefly so concurrent
// processes do not hold the lock across the logger's lifetime.
func persistSchema(logsDir, model string, desired []schema.Field, vlog *ilog.Logger) ([]schema.Field, error) {
	reg, err := schema.OpenRegistry(filepath.Join(logsDir, SchemaRegistryFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = reg.Close() }()

	persisted, err := reg.Load(model)
	if err != nil {
		return nil, err
	}
	merged, added := schema.Reconcile(persisted, desired)
	if len(added) > 0 {
		vlog.Printf("model %s: registering fields %v", model, added)
		if err := reg.Save(model, merged); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// LogPrediction validates the prediction, computes the enabled metrics, and
// appends the record. With the default flush-every-record setting the record
// is on disk when the call returns. Metric failures never fail the call; the
// affected cells are logged as nulls.
func (l *Logger) LogPrediction(ctx context.Context, p Prediction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ImageName == "" {
		return fmt.Errorf("missing mandatory field: %s", fieldImageName)
	}
	if p.Class == "" {
		return fmt.Errorf("missing mandatory field: %s", fieldPredClass)
	}
	if l.task == TaskDetection && (p.Box == nil || !p.Box.Valid()) {
		return fmt.Errorf("detection prediction requires a valid bounding box")
	}

	rec := map[string]any{
		schema.FieldRecordID: uuid.NewString(),
		schema.FieldLoggedAt: time.Now().UnixMilli(),
		fieldImageName:       p.ImageName,
		fieldPredClass:       p.Class,
		fieldConfidence:      p.Confidence,
	}
	if l.task == TaskDetection {
		rec[fieldBBoxX1] = float32(p.Box.X1)
		rec[fieldBBoxY1] = float32(p.Box.Y1)
		rec[fieldBBoxX2] = float32(p.Box.X2)
		rec[fieldBBoxY2] = float32(p.Box.Y2)
	}

	l.computeMetrics(p, rec)
	return l.writer.Append(rec)
}

func (l *Logger) computeMetrics(p Prediction, rec map[string]any) {
	if len(l.metrics) == 0 {
		return
	}

	needFrame := false
	for _, def := range l.metrics {
		if def.RequiresImage {
			needFrame = true
			break
		}
	}

	var frame *imgmetrics.Frame
	if needFrame && p.Image != nil {
		f, err := imgmetrics.NewFrame(p.Image)
		if err != nil {
			l.vlog.Printf("model %s: decode image for %s: %v", l.model, p.ImageName, err)
		} else {
			frame = f
		}
	}

	in := imgmetrics.Input{Frame: frame, Box: p.Box}
	for _, def := range l.metrics {
		v, err := def.Compute(in)
		if err != nil {
			l.vlog.Printf("model %s: metric %s on %s: %v", l.model, def.Name, p.ImageName, err)
			continue
		}
		if v.Available {
			rec[imgmetrics.ColumnName(def)] = float32(v.Number)
		}
	}
}

// Flush writes buffered records to disk.
func (l *Logger) Flush() error {
	return l.writer.Flush()
}

// Close flushes buffered records, stops the interval flusher, and closes the
// log file. Close is idempotent.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		close(l.stop)
		l.wg.Wait()
		l.closeErr = l.writer.Close()
	})
	return l.closeErr
}

// LogFile returns the path of this process's log file for the model.
func (l *Logger) LogFile() string {
	return l.writer.Path()
}

func (l *Logger) flushLoop(interval time.Duration) {
	defer l.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := l.writer.Flush(); err != nil {
				l.vlog.Printf("model %s: interval flush: %v", l.model, err)
			}
		case <-l.stop:
			return
		}
	}
}
