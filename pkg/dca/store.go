package dca

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrSchemaNotFound reports an undeclared table or field.
var ErrSchemaNotFound = errors.New("dca: schema not found")

// Store keeps the parsed table schemas. Lookups are safe for concurrent use.
//
// The store is process-wide state: SetSortingRoot mutates it in place and
// the change is visible to every later caller until the host reloads or
// replaces the schema. Callers that need isolation work on a Clone.
type Store struct {
	mu     sync.RWMutex
	tables map[string]TableSpec
}

// NewStore builds a store from already typed table specs. Later tables with
// the same name replace earlier ones.
func NewStore(tables ...TableSpec) *Store {
	store := &Store{tables: make(map[string]TableSpec, len(tables))}
	for _, table := range tables {
		if table.Name == "" {
			continue
		}
		store.tables[table.Name] = table.clone()
	}
	return store
}

// Table returns the schema of the named table.
func (s *Store) Table(name string) (TableSpec, error) {
	if s == nil {
		return TableSpec{}, fmt.Errorf("%w: table %q", ErrSchemaNotFound, name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.tables[name]
	if !ok {
		return TableSpec{}, fmt.Errorf("%w: table %q", ErrSchemaNotFound, name)
	}
	return table.clone(), nil
}

// Has reports whether the table is declared.
func (s *Store) Has(name string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[name]
	return ok
}

// Field returns the declaration of table.field.
func (s *Store) Field(table, field string) (FieldSpec, error) {
	spec, err := s.Table(table)
	if err != nil {
		return FieldSpec{}, err
	}
	fieldSpec, ok := spec.Fields[field]
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: field %q.%q", ErrSchemaNotFound, table, field)
	}
	return fieldSpec, nil
}

// Operations returns the ordered per-record operations of a table.
func (s *Store) Operations(table string) ([]Operation, error) {
	spec, err := s.Table(table)
	if err != nil {
		return nil, err
	}
	return slices.Clone(spec.Operations), nil
}

// GlobalOperations returns the ordered global operations of a table.
func (s *Store) GlobalOperations(table string) ([]Operation, error) {
	spec, err := s.Table(table)
	if err != nil {
		return nil, err
	}
	return slices.Clone(spec.GlobalOperations), nil
}

// Selectors returns the selector fields of a table. Unknown tables have none.
func (s *Store) Selectors(table string) []string {
	spec, err := s.Table(table)
	if err != nil {
		return nil
	}
	return slices.Clone(spec.Selectors)
}

// SortingRoot returns the root ids the list view is restricted to.
func (s *Store) SortingRoot(table string) []int64 {
	spec, err := s.Table(table)
	if err != nil {
		return nil
	}
	return spec.Sorting.Root
}

// SetSortingRoot overwrites the sorting root of a table. This mutates the
// shared schema for the rest of the process lifetime (or until Replace).
func (s *Store) SetSortingRoot(table string, root []int64) error {
	if s == nil {
		return fmt.Errorf("%w: table %q", ErrSchemaNotFound, table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: table %q", ErrSchemaNotFound, table)
	}
	spec.Sorting.Root = append([]int64(nil), root...)
	s.tables[table] = spec
	return nil
}

// Names returns the sorted table names.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns an independent copy, so sorting-root changes on the copy do
// not leak into the original.
func (s *Store) Clone() *Store {
	if s == nil {
		return NewStore()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cloned := &Store{tables: make(map[string]TableSpec, len(s.tables))}
	for name, table := range s.tables {
		cloned.tables[name] = table.clone()
	}
	return cloned
}

// Replace swaps in the tables of another store. It is the reset hook hosts
// use after reloading schema files.
func (s *Store) Replace(other *Store) {
	if s == nil || other == nil {
		return
	}
	fresh := other.Clone()

	s.mu.Lock()
	s.tables = fresh.tables
	s.mu.Unlock()
}
