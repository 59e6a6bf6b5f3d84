package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// jsonFile is a fallback-store collection: one JSON array per entity type on
// local disk. The file has no native keys; callers express identity through
// predicates over the natural key. All mutations serialize on an in-process
// mutex and land via write-temp-then-rename, so a crashed writer never leaves
// a half-written file behind.
type jsonFile[T any] struct {
	path string
	mu   sync.Mutex
}

func newJSONFile[T any](path string) *jsonFile[T] {
	return &jsonFile[T]{path: path}
}

// load reads the whole collection. A missing file is an empty collection.
func (f *jsonFile[T]) load() ([]T, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return items, nil
}

// write replaces the whole collection atomically.
func (f *jsonFile[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", f.path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename into %s: %w", f.path, err)
	}
	return nil
}

// All returns every record in the collection.
func (f *jsonFile[T]) All() ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// Find returns all records matching the predicate.
func (f *jsonFile[T]) Find(pred func(T) bool) ([]T, error) {
	items, err := f.All()
	if err != nil {
		return nil, err
	}
	var out []T
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// FindOne returns the first matching record, or nil when none matches.
func (f *jsonFile[T]) FindOne(pred func(T) bool) (*T, error) {
	items, err := f.All()
	if err != nil {
		return nil, err
	}
	for i := range items {
		if pred(items[i]) {
			rec := items[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// Count returns the number of records matching the predicate.
func (f *jsonFile[T]) Count(pred func(T) bool) (int, error) {
	items, err := f.All()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, it := range items {
		if pred(it) {
			n++
		}
	}
	return n, nil
}

// Upsert replaces the first record matching the predicate, or appends when no
// record matches. The predicate is the record's natural key.
func (f *jsonFile[T]) Upsert(pred func(T) bool, rec T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, err := f.load()
	if err != nil {
		return err
	}
	for i := range items {
		if pred(items[i]) {
			items[i] = rec
			return f.write(items)
		}
	}
	return f.write(append(items, rec))
}

// Append adds a record without any key check. Used for entity types whose
// natural key allows repeated records (non-daily expenses).
func (f *jsonFile[T]) Append(rec T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, err := f.load()
	if err != nil {
		return err
	}
	return f.write(append(items, rec))
}

// DeleteWhere removes every record matching the predicate and returns how
// many were removed.
func (f *jsonFile[T]) DeleteWhere(pred func(T) bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, err := f.load()
	if err != nil {
		return 0, err
	}
	kept := items[:0]
	removed := 0
	for _, it := range items {
		if pred(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, f.write(kept)
}
