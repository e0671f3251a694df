// Package dialect describes what a SQL backend can express: how far
// pagination can be pushed down, how null ordering is spelled, how bind
// placeholders look and how each predicate kind is rendered.
//
// A Dialect is a plain descriptor. It performs no I/O and holds no
// connection state, so one value can be shared by any number of optimizers.
package dialect

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pushdown/internal/ir"
)

// PaginationSupport describes whether skip/limit can be expressed in SQL.
type PaginationSupport string

const (
	// PaginationNone means skip/limit are never pushed down.
	PaginationNone PaginationSupport = "NONE"
	// PaginationOnlyAfterSorted means skip/limit need an ORDER BY clause.
	PaginationOnlyAfterSorted PaginationSupport = "ONLY_AFTER_SORTED"
	// PaginationFull means skip/limit can always be pushed down.
	PaginationFull PaginationSupport = "FULL"
)

// NullOrderStrategy describes how explicit null placement is spelled.
type NullOrderStrategy string

const (
	// NullOrderPre prepends "col IS NOT NULL, " (or "col IS NULL, ").
	NullOrderPre NullOrderStrategy = "PRE"
	// NullOrderPreWithCase prepends a CASE expression ranking nulls.
	NullOrderPreWithCase NullOrderStrategy = "PRE_WITH_CASE"
	// NullOrderPost appends NULLS FIRST / NULLS LAST after the direction.
	NullOrderPost NullOrderStrategy = "POST"
)

// NoLimit is passed to Paginate when only a skip was pushed down.
const NoLimit int64 = -1

// PaginateFunc wraps sql with a pagination clause. values holds the bind
// values collected so far; any values the clause binds are appended.
// limit is NoLimit when no Limit was pushed down; skip is 0 when no Skip was.
type PaginateFunc func(d *Dialect, sql string, values []any, skip, limit int64) (string, []any)

// Template renders an atomic predicate on column col. ops holds the operands
// already converted to storage values; bind records a value and returns the
// placeholder that refers to it.
type Template func(col string, ops []any, inclusion ir.Inclusion, bind func(v any) string) string

// Dialect is the capability descriptor of a SQL backend.
type Dialect struct {
	Name       string
	Pagination PaginationSupport
	NullOrder  NullOrderStrategy

	// Placeholder returns the bind marker for the n-th value (1-based).
	Placeholder func(n int) string

	// QuoteChar opens and closes quoted identifiers; CloseQuoteChar
	// defaults to QuoteChar.
	QuoteChar      string
	CloseQuoteChar string

	// Templates overrides the ANSI template for individual kinds.
	Templates map[ir.Kind]Template

	PaginateFunc PaginateFunc
}

// Paginate wraps sql with the dialect's pagination clause. Dialects without
// pagination support return sql and values unchanged.
func (d *Dialect) Paginate(sql string, values []any, skip, limit int64) (string, []any) {
	if d.PaginateFunc == nil || d.Pagination == PaginationNone {
		return sql, values
	}
	return d.PaginateFunc(d, sql, values, skip, limit)
}

// PlaceholderFor returns the bind marker for the n-th value (1-based).
func (d *Dialect) PlaceholderFor(n int) string {
	if d.Placeholder == nil {
		return "?"
	}
	return d.Placeholder(n)
}

// Template returns the renderer for kind, falling back to the ANSI set.
func (d *Dialect) Template(kind ir.Kind) (Template, bool) {
	if t, ok := d.Templates[kind]; ok {
		return t, true
	}
	t, ok := ansiTemplates[kind]
	return t, ok
}

// Quote returns name as a quoted identifier. The name is NFC-normalized so
// that visually identical identifiers produce the same column reference.
func (d *Dialect) Quote(name string) string {
	name = norm.NFC.String(name)
	open := d.QuoteChar
	if open == "" {
		return name
	}
	closing := d.CloseQuoteChar
	if closing == "" {
		closing = open
	}
	return open + strings.ReplaceAll(name, closing, closing+closing) + closing
}

// String returns the dialect name.
func (d *Dialect) String() string {
	return d.Name
}

// QuestionMark is the positional "?" placeholder style.
func QuestionMark(int) string {
	return "?"
}

// Dollar is the numbered "$n" placeholder style.
func Dollar(n int) string {
	return fmt.Sprintf("$%d", n)
}

var registry = map[string]func() *Dialect{
	"sqlite":    SQLite,
	"mysql":     MySQL,
	"postgres":  PostgreSQL,
	"sqlserver": SQLServer,
	"ansi":      ANSI,
}

// Lookup returns a new instance of the dialect registered under name.
func Lookup(name string) (*Dialect, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q: must be one of %v", name, Names())
	}
	return ctor(), nil
}

// Names lists the registered dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
