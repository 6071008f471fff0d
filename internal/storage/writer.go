package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/parquet-go/parquet-go"

	ilog "github.com/kavinraja10/lookoutcv/internal/log"
	"github.com/kavinraja10/lookoutcv/internal/schema"
)

// Writer appends prediction records to a single parquet log file.
//
// Parquet files cannot grow in place, so the writer buffers records and on
// flush rewrites the file: rows already on disk are read back, merged with
// the buffer, and written to a temp file that is renamed over the original.
// The log file is therefore a complete, readable parquet file after every
// flush, and a failed flush keeps the buffered records for the next attempt.
//
// A Writer owns its file; cross-process writers are expected to target
// distinct per-pid paths. Methods are safe for concurrent use.
type Writer struct {
	mu         sync.Mutex
	path       string
	model      string
	fields     []schema.Field // sorted by name, widened at open
	flushEvery int
	pending    []map[string]any
	log        *ilog.Logger
	closed     bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithFlushEvery sets how many buffered records trigger a flush.
// 1 (the default) flushes on every append; 0 disables count-based flushing.
func WithFlushEvery(n int) Option {
	return func(w *Writer) { w.flushEvery = n }
}

// WithLogger sets the verbose diagnostic logger.
func WithLogger(l *ilog.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// NewWriter opens the log file at path for the given model and field set.
// A missing file is created empty; an existing file with a narrower schema
// is widened immediately, backfilling the new columns with nulls.
func NewWriter(path, model string, fields []schema.Field, opts ...Option) (*Writer, error) {
	if err := schema.Validate(fields); err != nil {
		return nil, fmt.Errorf("writer fields: %w", err)
	}

	w := &Writer{
		path:       path,
		model:      model,
		fields:     schema.Sorted(fields),
		flushEvery: 1,
	}
	for _, opt := range opts {
		opt(w)
	}

	if _, err := os.Stat(path); err == nil {
		_, existing, err := ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("inspect existing log: %w", err)
		}
		merged, added := schema.Reconcile(existing, w.fields)
		w.fields = schema.Sorted(merged)
		if len(added) > 0 {
			w.log.Printf("evolving %s: adding columns %v", path, added)
			if err := w.rewrite(); err != nil {
				return nil, fmt.Errorf("evolve schema of %s: %w", path, err)
			}
		}
		return w, nil
	}

	// Fresh file: persist the empty log up front so readers always find a
	// valid parquet file for the process.
	if err := w.rewrite(); err != nil {
		return nil, fmt.Errorf("create log %s: %w", path, err)
	}
	return w, nil
}

// Fields returns the writer's current field set in column order.
func (w *Writer) Fields() []schema.Field {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]schema.Field(nil), w.fields...)
}

// Path returns the log file path.
func (w *Writer) Path() string { return w.path }

// Append buffers a record, flushing when the buffer reaches the configured
// size. Record keys missing from the schema are an error; schema fields
// missing from the record become null cells.
func (w *Writer) Append(rec map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("writer for %s is closed", w.path)
	}

	for key := range rec {
		if !w.hasField(key) {
			return fmt.Errorf("record field %q not in schema for model %q", key, w.model)
		}
	}

	w.pending = append(w.pending, rec)
	if w.flushEvery > 0 && len(w.pending) >= w.flushEvery {
		return w.flushLocked()
	}
	return nil
}

// Flush writes all buffered records to disk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.flushLocked()
}

// Close flushes buffered records and marks the writer closed. Close is
// idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	err := w.flushLocked()
	w.closed = true
	return err
}

func (w *Writer) hasField(name string) bool {
	for _, f := range w.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}
	if err := w.rewrite(); err != nil {
		return err
	}
	w.log.Printf("flushed %d records to %s", len(w.pending), w.path)
	w.pending = w.pending[:0]
	return nil
}

// rewrite writes existing rows plus the pending buffer to a temp file and
// renames it over the log, so the file is never observed half-written.
func (w *Writer) rewrite() error {
	var existing []map[string]any
	if _, err := os.Stat(w.path); err == nil {
		rows, _, err := ReadFile(w.path)
		if err != nil {
			return fmt.Errorf("read back %s: %w", w.path, err)
		}
		existing = rows
	}

	ps, err := buildSchema(w.model, w.fields)
	if err != nil {
		return err
	}

	tmp := w.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}

	if err := w.writeAll(f, ps, existing); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp log: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace log file: %w", err)
	}
	return nil
}

func (w *Writer) writeAll(f *os.File, ps *parquet.Schema, existing []map[string]any) error {
	pw := parquet.NewWriter(f, ps, parquet.Compression(&parquet.Snappy))
	for _, batch := range [][]map[string]any{existing, w.pending} {
		for _, rec := range batch {
			row, err := buildRow(w.fields, rec)
			if err != nil {
				return err
			}
			if _, err := pw.WriteRows([]parquet.Row{row}); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("finalize parquet: %w", err)
	}
	return f.Sync()
}
