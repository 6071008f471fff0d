package storage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/kavinraja10/lookoutcv/internal/schema"
)

const readBatch = 256

// ReadFile reads a parquet log file, returning its rows as field-name keyed
// maps along with the fields in column order. Values are string, float64,
// int64, or nil for null cells.
func ReadFile(path string) ([]map[string]any, []schema.Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("parse parquet %s: %w", path, err)
	}

	fields, err := fileFields(pf)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	var out []map[string]any
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		buf := make([]parquet.Row, readBatch)
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				out = append(out, decodeRow(fields, row))
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = rows.Close()
				return nil, nil, fmt.Errorf("read rows from %s: %w", path, err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, nil, fmt.Errorf("close row reader for %s: %w", path, err)
		}
	}
	return out, fields, nil
}

// fileFields recovers the flat field set of a log file from its schema.
func fileFields(pf *parquet.File) ([]schema.Field, error) {
	var fields []schema.Field
	for _, f := range pf.Schema().Fields() {
		if !f.Leaf() {
			return nil, fmt.Errorf("unexpected nested column %q", f.Name())
		}
		fields = append(fields, schema.Field{
			Name: f.Name(),
			Type: typeOfKind(f.Type().Kind()),
		})
	}
	return fields, nil
}

func typeOfKind(k parquet.Kind) schema.Type {
	switch k {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return schema.TypeString
	case parquet.Int32, parquet.Int64, parquet.Boolean:
		return schema.TypeInt64
	default:
		return schema.TypeFloat
	}
}

func decodeRow(fields []schema.Field, row parquet.Row) map[string]any {
	rec := make(map[string]any, len(fields))
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(fields) {
			continue
		}
		f := fields[col]
		if dv := decodeValue(f, v); dv != nil {
			rec[f.Name] = dv
		}
	}
	return rec
}
