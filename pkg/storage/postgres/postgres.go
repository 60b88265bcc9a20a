// Package postgres implements the record lookup and save hook on
// PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goliatone/go-dcaform/pkg/records"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Querier is the subset of *pgxpool.Pool the store uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and writes records in one schema.
type Store struct {
	db     Querier
	schema string
}

// Open connects a pool to dsn.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, *Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, New(pool, ""), nil
}

// New returns a store over db. An empty schema means "public".
func New(db Querier, schema string) *Store {
	if schema == "" {
		schema = "public"
	}
	return &Store{db: db, schema: schema}
}

// TableExists reports whether table is present in the store's schema.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM information_schema.tables
  WHERE table_schema = $1 AND table_name = $2
)`, s.schema, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: table lookup %s: %w", table, err)
	}
	return exists, nil
}

// FindByPrimaryKey returns the row with the given id.
func (s *Store) FindByPrimaryKey(ctx context.Context, table string, id int64) (records.Record, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("postgres: invalid table name %q", table)
	}
	rows, err := s.db.Query(ctx, `SELECT * FROM `+s.qualified(table)+` WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s.%d: %w", table, id, err)
	}
	record, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("%w: %s.%d", records.ErrNotFound, table, id)
	case err != nil:
		return nil, fmt.Errorf("postgres: scan %s.%d: %w", table, id, err)
	}
	return records.Record(record), nil
}

// Save writes value into the field column of the row with the given id.
func (s *Store) Save(ctx context.Context, table, field string, id int64, value any) error {
	if !identifier.MatchString(table) || !identifier.MatchString(field) {
		return fmt.Errorf("postgres: invalid column %q.%q", table, field)
	}
	tag, err := s.db.Exec(ctx, `UPDATE `+s.qualified(table)+` SET `+pgx.Identifier{field}.Sanitize()+` = $1 WHERE id = $2`, value, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("postgres: save %s.%s: %s (%s)", table, field, pgErr.Message, pgErr.Code)
		}
		return fmt.Errorf("postgres: save %s.%s: %w", table, field, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s.%d", records.ErrNotFound, table, id)
	}
	return nil
}

func (s *Store) qualified(table string) string {
	return pgx.Identifier{s.schema, table}.Sanitize()
}

var _ records.Store = (*Store)(nil)
