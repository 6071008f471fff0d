package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/boltdb/bolt"
)

var schemasBucket = []byte("schemas")

// Registry persists the evolved field set per model, so restarted processes
// and new writers see the union of all fields ever logged for a model.
type Registry struct {
	db *bolt.DB
}

// OpenRegistry opens (creating if needed) the schema registry database at
// path. The open times out rather than blocking forever on a stale lock.
func OpenRegistry(path string) (*Registry, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open schema registry %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(schemasBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schemas bucket: %w", err)
	}

	return &Registry{db: db}, nil
}

// Load returns the persisted fields for a model, or nil if none are recorded.
func (r *Registry) Load(model string) ([]Field, error) {
	var fields []Field
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(schemasBucket).Get([]byte(model))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("parse schema for model %q: %w", model, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// Save records the fields for a model, replacing any previous entry.
func (r *Registry) Save(model string, fields []Field) error {
	if err := Validate(fields); err != nil {
		return fmt.Errorf("schema for model %q: %w", model, err)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode schema for model %q: %w", model, err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(schemasBucket).Put([]byte(model), raw)
	})
}

// Models returns the names of all models with a recorded schema, sorted.
func (r *Registry) Models() ([]string, error) {
	var models []string
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(schemasBucket).ForEach(func(k, _ []byte) error {
			models = append(models, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(models)
	return models, nil
}

// Close releases the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}
