package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/pushdown"
	"github.com/roach88/pushdown/internal/querysql"
	"github.com/roach88/pushdown/internal/stream"
)

// Source names a table and the fields selected from it. An empty field list
// selects every column with the Identity mapper.
//
// Operations left in memory only see selected fields, so a pipeline that
// refers to a field must select it.
type Source struct {
	Table  string
	Fields []ir.Field
}

// Result is the outcome of Stream.
type Result struct {
	Rows []ir.Row
	Plan pushdown.Result
	// Fetched is the number of rows the database returned before the
	// remaining pipeline ran.
	Fetched int
}

// Stream evaluates p over src.
//
// The pipeline is optimized with the default selector, the statement runs
// against SQLite, storage values are mapped back to domain values, and the
// remaining pipeline is applied in memory. The result is the same as
// evaluating p in memory over the whole table.
func (s *Store) Stream(ctx context.Context, src Source, p ir.Pipeline) (Result, error) {
	if src.Table == "" {
		return Result{}, fmt.Errorf("stream: empty table name")
	}

	plan, err := s.Plan(src, p)
	if err != nil {
		return Result{}, fmt.Errorf("stream %s: %w", src.Table, err)
	}
	s.metrics.ObservePlan(src.Table, plan)

	s.logger.Debug("executing statement",
		"source", src.Table,
		"strategy", plan.Strategy,
		"sql", plan.Statement.SQL,
		"values", len(plan.Statement.Values),
	)

	rows, err := s.query(ctx, src.Fields, plan.Statement)
	if err != nil {
		return Result{}, fmt.Errorf("stream %s: %w", src.Table, err)
	}

	out, err := stream.Apply(rows, plan.Remaining)
	if err != nil {
		return Result{}, fmt.Errorf("stream %s: remaining pipeline: %w", src.Table, err)
	}
	s.metrics.ObserveRows(src.Table, len(rows), len(out))

	if err := s.logQuery(ctx, src.Table, plan, len(rows), len(out)); err != nil {
		return Result{}, fmt.Errorf("stream %s: %w", src.Table, err)
	}

	return Result{Rows: out, Plan: plan, Fetched: len(rows)}, nil
}

// Plan optimizes p for src without executing anything.
func (s *Store) Plan(src Source, p ir.Pipeline) (pushdown.Result, error) {
	columns := querysql.QuotedColumns(s.dialect)
	base := querysql.BaseSelect(s.dialect.Quote(src.Table), src.Fields, columns)
	sel := pushdown.DefaultSelector(base,
		pushdown.WithColumnNamer(columns),
		pushdown.WithLogger(s.logger),
	)
	var target pushdown.StatementTarget
	return sel.Optimize(p, s.dialect, &target)
}

func (s *Store) query(ctx context.Context, fields []ir.Field, stmt querysql.Statement) ([]ir.Row, error) {
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Values...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out, err := scanRows(rows, fields)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scanRows reads every row, mapping storage values back through the field
// mappers. Columns without a matching field keep their storage value.
func scanRows(rows *sql.Rows, fields []ir.Field) ([]ir.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	mappers := make(map[string]ir.TypeMapper, len(fields))
	for _, f := range fields {
		mappers[f.Name] = f.TypeMapper()
	}

	out := []ir.Row{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(ir.Row, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if m, ok := mappers[col]; ok && v != nil {
				v = m.ToDomain(v)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
