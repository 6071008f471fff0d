// Package schema models the evolving column set of a model's prediction log.
//
// Every model accumulates fields over its lifetime: mandatory prediction
// fields, bookkeeping fields, and whichever image-quality metrics were
// enabled at any point. Reconcile merges the fields a new logger wants into
// the set already persisted for the model, so old log files can be widened
// with null backfill instead of breaking readers.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the storage type of a logged field.
type Type string

const (
	// TypeString stores UTF-8 text (identifiers, class labels).
	TypeString Type = "string"
	// TypeFloat stores 32-bit floats (confidences, coordinates, metrics).
	TypeFloat Type = "float"
	// TypeInt64 stores 64-bit integers (timestamps).
	TypeInt64 Type = "int64"
)

// Field is a single named column of a model's log.
type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Reserved bookkeeping field names present in every record.
const (
	FieldRecordID = "record_id"
	FieldLoggedAt = "logged_at"
)

// TypeFor infers the storage type of a field from its name. Identifier and
// label fields ("name"/"class" in the name) are strings, timestamps are
// int64, everything else is float32.
func TypeFor(name string) Type {
	switch name {
	case FieldRecordID:
		return TypeString
	case FieldLoggedAt:
		return TypeInt64
	}
	if strings.Contains(name, "name") || strings.Contains(name, "class") {
		return TypeString
	}
	return TypeFloat
}

// FieldsFor builds fields for the given names using TypeFor.
func FieldsFor(names []string) []Field {
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, Field{Name: name, Type: TypeFor(name)})
	}
	return fields
}

// Reconcile merges desired fields into the existing set. Existing fields keep
// their position and type; desired fields not yet present are appended in
// order. It returns the merged set and the names that were added.
func Reconcile(existing, desired []Field) ([]Field, []string) {
	merged := append([]Field(nil), existing...)
	seen := make(map[string]struct{}, len(existing))
	for _, f := range existing {
		seen[f.Name] = struct{}{}
	}

	var added []string
	for _, f := range desired {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		merged = append(merged, f)
		added = append(added, f.Name)
	}
	return merged, added
}

// Sorted returns a copy of fields ordered by name. Columnar files store
// columns in name order, so writers and readers share this ordering.
func Sorted(fields []Field) []Field {
	out := append([]Field(nil), fields...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the field names in the given order.
func Names(fields []Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

// Validate rejects field sets with empty or duplicate names.
func Validate(fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("field with empty name")
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
