package querysql

import (
	"strings"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
)

// ColumnNamer maps a field to the column reference used in SQL text.
type ColumnNamer func(ir.Field) string

// PlainColumns uses the field name verbatim as the column reference.
func PlainColumns(f ir.Field) string {
	return f.Name
}

// QuotedColumns quotes field names with the dialect's identifier quotes.
func QuotedColumns(d *dialect.Dialect) ColumnNamer {
	return func(f ir.Field) string {
		return d.Quote(f.Name)
	}
}

// Statement is a compiled SQL text and its bind values, in placeholder order.
type Statement struct {
	SQL    string `json:"sql"`
	Values []any  `json:"values"`
}

// Page carries the pagination pushed into a statement. Limit is
// dialect.NoLimit when only a skip was pushed down.
type Page struct {
	Skip  int64
	Limit int64
}

// SQLCompiler renders predicate and comparator trees for one dialect.
//
// A compiler accumulates bind values across calls so that placeholders are
// numbered consistently for the whole statement. Use a new compiler per
// statement.
//
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	dialect *dialect.Dialect
	columns ColumnNamer
	values  []any
}

// NewSQLCompiler creates a compiler. A nil namer means PlainColumns.
func NewSQLCompiler(d *dialect.Dialect, columns ColumnNamer) *SQLCompiler {
	if columns == nil {
		columns = PlainColumns
	}
	return &SQLCompiler{dialect: d, columns: columns}
}

// Values returns the values bound so far, in placeholder order.
func (c *SQLCompiler) Values() []any {
	return c.values
}

// bind records v and returns its placeholder.
func (c *SQLCompiler) bind(v any) string {
	c.values = append(c.values, v)
	return c.dialect.PlaceholderFor(len(c.values))
}

// CompileStatement assembles base + WHERE + ORDER BY + pagination.
//
// filters are AND-joined in order; a filter that simplifies to ALWAYS_TRUE
// contributes nothing. sorts are given most significant first. page is nil
// when pagination is not pushed down.
func (c *SQLCompiler) CompileStatement(base string, filters []ir.Predicate, sorts []ir.Comparator, page *Page) Statement {
	var sb strings.Builder
	sb.WriteString(base)

	var fragments []string
	for _, f := range filters {
		if sql, _ := c.CompilePredicate(f); sql != "" {
			fragments = append(fragments, sql)
		}
	}
	if len(fragments) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(fragments, " AND "))
	}

	if orderBy := c.CompileOrderBy(sorts...); orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}

	sql, values := sb.String(), c.values
	if page != nil {
		sql, values = c.dialect.Paginate(sql, values, page.Skip, page.Limit)
		c.values = values
	}

	if values == nil {
		values = []any{}
	}
	return Statement{SQL: sql, Values: values}
}

// BaseSelect builds "SELECT col, ... FROM table" for the given fields.
// An empty field list selects "*".
func BaseSelect(table string, fields []ir.Field, columns ColumnNamer) string {
	if columns == nil {
		columns = PlainColumns
	}
	if len(fields) == 0 {
		return "SELECT * FROM " + table
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = columns(f)
	}
	return "SELECT " + strings.Join(parts, ", ") + " FROM " + table
}
