package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/pushdown/internal/ir"
)

// Insert writes rows into table, converting every value to its storage
// representation with the field's TypeMapper. Fields absent from a row are
// written as NULL.
//
// Uses ON CONFLICT DO NOTHING for idempotency - rows whose primary key
// already exists are silently ignored. All rows are written in one
// transaction.
func (s *Store) Insert(ctx context.Context, table string, fields []ir.Field, rows []ir.Row) error {
	if len(fields) == 0 {
		return fmt.Errorf("insert into %s: no fields", table)
	}

	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = s.dialect.Quote(f.Name)
		marks[i] = s.dialect.PlaceholderFor(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		s.dialect.Quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: begin: %w", table, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("insert into %s: prepare: %w", table, err)
	}
	defer stmt.Close()

	args := make([]any, len(fields))
	for n, row := range rows {
		for i, f := range fields {
			v := row.Get(f)
			if v != nil {
				v = f.TypeMapper().ToStorage(v)
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: row %d: %w", table, n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: commit: %w", table, err)
	}
	return nil
}
