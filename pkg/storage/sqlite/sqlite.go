// Package sqlite implements the record lookup and save hook on SQLite.
//
// Tables are addressed by their schema names and must have an integer id
// primary key column.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-dcaform/pkg/records"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store reads and writes records through a database handle.
type Store struct {
	db *sql.DB
}

// Open connects to the database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: set pragma: %w", err)
		}
	}
	return New(db), nil
}

// New wraps an open handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// TableExists reports whether table is present in the database.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("sqlite: table lookup %s: %w", table, err)
	}
	return true, nil
}

// FindByPrimaryKey returns the row with the given id. Text and blob columns
// are returned as strings.
func (s *Store) FindByPrimaryKey(ctx context.Context, table string, id int64) (records.Record, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("sqlite: invalid table name %q", table)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM "`+table+`" WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s.%d: %w", table, id, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: columns of %s: %w", table, err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("sqlite: query %s.%d: %w", table, id, err)
		}
		return nil, fmt.Errorf("%w: %s.%d", records.ErrNotFound, table, id)
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("sqlite: scan %s.%d: %w", table, id, err)
	}

	record := make(records.Record, len(columns))
	for i, column := range columns {
		if raw, ok := values[i].([]byte); ok {
			record[column] = string(raw)
			continue
		}
		record[column] = values[i]
	}
	return record, rows.Err()
}

// Save writes value into the field column of the row with the given id.
func (s *Store) Save(ctx context.Context, table, field string, id int64, value any) error {
	if !identifier.MatchString(table) || !identifier.MatchString(field) {
		return fmt.Errorf("sqlite: invalid column %q.%q", table, field)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE "`+table+`" SET "`+field+`" = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("sqlite: save %s.%s: %w", table, field, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: save %s.%s: %w", table, field, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s.%d", records.ErrNotFound, table, id)
	}
	return nil
}

var _ records.Store = (*Store)(nil)
