// Package storage persists prediction records to per-model, per-process
// parquet files and reads them back for analysis.
package storage

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/kavinraja10/lookoutcv/internal/schema"
)

// buildSchema maps a field set onto a flat parquet schema. Every column is
// optional so missing values become nulls. Parquet groups order columns by
// name; callers must pass fields through schema.Sorted so row building and
// column indexes agree.
func buildSchema(name string, fields []schema.Field) (*parquet.Schema, error) {
	group := parquet.Group{}
	for _, f := range fields {
		node, err := nodeFor(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		group[f.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema(name, group), nil
}

func nodeFor(t schema.Type) (parquet.Node, error) {
	switch t {
	case schema.TypeString:
		return parquet.String(), nil
	case schema.TypeFloat:
		return parquet.Leaf(parquet.FloatType), nil
	case schema.TypeInt64:
		return parquet.Int(64), nil
	default:
		return nil, fmt.Errorf("unsupported type %q", t)
	}
}

// buildRow converts a record into a parquet row following the sorted field
// order. Missing keys and nil values become null cells; present values are
// coerced to the column type.
func buildRow(fields []schema.Field, rec map[string]any) (parquet.Row, error) {
	row := make(parquet.Row, 0, len(fields))
	for i, f := range fields {
		v, ok := rec[f.Name]
		if !ok || v == nil {
			row = append(row, parquet.ValueOf(nil).Level(0, 0, i))
			continue
		}
		cv, err := coerce(f, v)
		if err != nil {
			return nil, err
		}
		row = append(row, parquet.ValueOf(cv).Level(0, 1, i))
	}
	return row, nil
}

func coerce(f schema.Field, v any) (any, error) {
	switch f.Type {
	case schema.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected string, got %T", f.Name, v)
		}
		return s, nil
	case schema.TypeFloat:
		switch n := v.(type) {
		case float32:
			return n, nil
		case float64:
			return float32(n), nil
		case int:
			return float32(n), nil
		case int64:
			return float32(n), nil
		default:
			return nil, fmt.Errorf("field %q: expected number, got %T", f.Name, v)
		}
	case schema.TypeInt64:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		default:
			return nil, fmt.Errorf("field %q: expected integer, got %T", f.Name, v)
		}
	default:
		return nil, fmt.Errorf("field %q: unsupported type %q", f.Name, f.Type)
	}
}

// decodeValue converts a parquet value into the map representation used
// throughout: string, float64, or int64. Null values return nil.
func decodeValue(f schema.Field, v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.Int64:
		return v.Int64()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Boolean:
		if v.Boolean() {
			return int64(1)
		}
		return int64(0)
	default:
		return nil
	}
}
