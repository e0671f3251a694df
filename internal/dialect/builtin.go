package dialect

import (
	"fmt"

	"github.com/roach88/pushdown/internal/ir"
)

// mysqlUnbounded is the documented way to express "no limit" in MySQL.
const mysqlUnbounded = "18446744073709551615"

// SQLite returns the SQLite dialect.
func SQLite() *Dialect {
	return &Dialect{
		Name:        "sqlite",
		Pagination:  PaginationFull,
		NullOrder:   NullOrderPre,
		Placeholder: QuestionMark,
		QuoteChar:   `"`,
		PaginateFunc: func(_ *Dialect, sql string, values []any, skip, limit int64) (string, []any) {
			return sql + limitOffset(skip, limit, "-1"), values
		},
	}
}

// MySQL returns the MySQL / MariaDB dialect.
func MySQL() *Dialect {
	// Backslash is an escape inside MySQL string literals, so the ESCAPE
	// clause needs it doubled.
	escape := `'\\'`
	return &Dialect{
		Name:        "mysql",
		Pagination:  PaginationFull,
		NullOrder:   NullOrderPre,
		Placeholder: QuestionMark,
		QuoteChar:   "`",
		Templates: map[ir.Kind]Template{
			ir.KindStartsWith: Like(escape, false, true),
			ir.KindEndsWith:   Like(escape, true, false),
			ir.KindContains:   Like(escape, true, true),
		},
		PaginateFunc: func(_ *Dialect, sql string, values []any, skip, limit int64) (string, []any) {
			return sql + limitOffset(skip, limit, mysqlUnbounded), values
		},
	}
}

// PostgreSQL returns the PostgreSQL dialect.
func PostgreSQL() *Dialect {
	return &Dialect{
		Name:        "postgres",
		Pagination:  PaginationFull,
		NullOrder:   NullOrderPost,
		Placeholder: Dollar,
		QuoteChar:   `"`,
		PaginateFunc: func(_ *Dialect, sql string, values []any, skip, limit int64) (string, []any) {
			if limit != NoLimit {
				sql += fmt.Sprintf(" LIMIT %d", limit)
			}
			if skip > 0 {
				sql += fmt.Sprintf(" OFFSET %d", skip)
			}
			return sql, values
		},
	}
}

// SQLServer returns the SQL Server dialect. OFFSET/FETCH is only valid after
// ORDER BY, and both counts are bound as parameters.
func SQLServer() *Dialect {
	return &Dialect{
		Name:           "sqlserver",
		Pagination:     PaginationOnlyAfterSorted,
		NullOrder:      NullOrderPreWithCase,
		Placeholder:    QuestionMark,
		QuoteChar:      "[",
		CloseQuoteChar: "]",
		PaginateFunc: func(d *Dialect, sql string, values []any, skip, limit int64) (string, []any) {
			out := make([]any, 0, len(values)+2)
			out = append(out, values...)
			out = append(out, skip)
			sql += " OFFSET " + d.PlaceholderFor(len(out)) + " ROWS"
			if limit != NoLimit {
				out = append(out, limit)
				sql += " FETCH NEXT " + d.PlaceholderFor(len(out)) + " ROWS ONLY"
			}
			return sql, out
		},
	}
}

// ANSI returns a conservative SQL-92 dialect without pagination support.
func ANSI() *Dialect {
	return &Dialect{
		Name:        "ansi",
		Pagination:  PaginationNone,
		NullOrder:   NullOrderPreWithCase,
		Placeholder: QuestionMark,
		QuoteChar:   `"`,
	}
}

// limitOffset renders "LIMIT n OFFSET m", substituting unbounded for a
// missing limit when an offset is present.
func limitOffset(skip, limit int64, unbounded string) string {
	switch {
	case limit == NoLimit && skip == 0:
		return ""
	case limit == NoLimit:
		return fmt.Sprintf(" LIMIT %s OFFSET %d", unbounded, skip)
	case skip == 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	default:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, skip)
	}
}
