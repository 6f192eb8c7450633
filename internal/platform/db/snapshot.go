package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/turnos/internal/platform/snapshot"
)

// SnapshotTable stores a whole collection in one table. Save replaces every
// row inside a transaction and records the save in _snapshots, so an empty
// table that was saved empty is told apart from one never written.
type SnapshotTable[T any] struct {
	Pool    *pgxpool.Pool
	Table   string
	Columns []string
	OrderBy string
	Scan    func(row pgx.Row) (T, error)
	Values  func(item T) []interface{}
}

func (s *SnapshotTable[T]) Load(ctx context.Context) ([]T, error) {
	var saved bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM _snapshots WHERE name = $1)`, s.Table).Scan(&saved)
	if err != nil {
		return nil, fmt.Errorf("check snapshot %s: %w", s.Table, err)
	}
	if !saved {
		return nil, snapshot.ErrAbsent
	}

	query := fmt.Sprintf("SELECT %s FROM %s", joinColumns(s.Columns), pgx.Identifier{s.Table}.Sanitize())
	if s.OrderBy != "" {
		query += " ORDER BY " + s.OrderBy
	}
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := s.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.Table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.Table, err)
	}
	return items, nil
}

func (s *SnapshotTable[T]) Save(ctx context.Context, items []T) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{s.Table}.Sanitize()); err != nil {
		return fmt.Errorf("clear %s: %w", s.Table, err)
	}

	if len(items) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{s.Table}, s.Columns,
			pgx.CopyFromSlice(len(items), func(i int) ([]interface{}, error) {
				return s.Values(items[i]), nil
			}))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", s.Table, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO _snapshots (name, saved_at) VALUES ($1, NOW())
		ON CONFLICT (name) DO UPDATE SET saved_at = EXCLUDED.saved_at`, s.Table); err != nil {
		return fmt.Errorf("mark snapshot %s: %w", s.Table, err)
	}

	return tx.Commit(ctx)
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += pgx.Identifier{c}.Sanitize()
	}
	return out
}
