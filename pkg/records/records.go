// Package records defines the record lookup and save hooks used by the
// field renderer and the picker, plus an in-memory implementation. SQL
// backed implementations live in pkg/storage.
package records

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("records: not found")

// Record is a stored row keyed by column name.
type Record map[string]any

// Get returns the column value or nil.
func (r Record) Get(column string) any {
	if r == nil {
		return nil
	}
	return r[column]
}

// Lookup resolves records by primary key.
type Lookup interface {
	FindByPrimaryKey(ctx context.Context, table string, id int64) (Record, error)
	TableExists(ctx context.Context, table string) (bool, error)
}

// Saver persists one accepted field value.
type Saver interface {
	Save(ctx context.Context, table, field string, id int64, value any) error
}

// Store combines lookup and save.
type Store interface {
	Lookup
	Saver
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, table, field string, id int64, value any) error

func (f SaverFunc) Save(ctx context.Context, table, field string, id int64, value any) error {
	return f(ctx, table, field, id, value)
}

// Memory keeps tables in process memory.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[int64]Record
}

// NewMemory returns an empty in-memory store. Tables listed in tables are
// created empty.
func NewMemory(tables ...string) *Memory {
	m := &Memory{tables: make(map[string]map[int64]Record)}
	for _, table := range tables {
		m.tables[table] = make(map[int64]Record)
	}
	return m
}

// Put stores a record, creating the table when needed.
func (m *Memory) Put(table string, id int64, record Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok {
		rows = make(map[int64]Record)
		m.tables[table] = rows
	}
	row := maps.Clone(record)
	if row == nil {
		row = Record{}
	}
	row["id"] = id
	rows[id] = row
}

func (m *Memory) FindByPrimaryKey(ctx context.Context, table string, id int64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.tables[table][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%d", ErrNotFound, table, id)
	}
	return maps.Clone(row), nil
}

func (m *Memory) TableExists(ctx context.Context, table string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tables[table]
	return ok, nil
}

// Save updates one column of an existing record.
func (m *Memory) Save(ctx context.Context, table, field string, id int64, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.tables[table][id]
	if !ok {
		return fmt.Errorf("%w: %s.%d", ErrNotFound, table, id)
	}
	row[field] = value
	return nil
}

// Tables lists the known tables, sorted.
func (m *Memory) Tables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.tables))
}
