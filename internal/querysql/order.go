package querysql

import (
	"strings"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
)

// OrderTerm is one flattened ORDER BY entry.
type OrderTerm struct {
	Field      ir.Field
	Descending bool
	Nulls      ir.NullOrder // effective placement, after reversal
}

// OrderTerms flattens comparators, most significant first, into ORDER BY
// terms. A field referenced again after its first occurrence is dropped:
// the later reference could only break ties the first one already decided.
//
// Panics with *UnsupportedExpressionError for non field-derived comparators.
func OrderTerms(cmps ...ir.Comparator) []OrderTerm {
	var terms []OrderTerm
	seen := make(map[string]bool)
	for _, cmp := range cmps {
		keys, ok := ir.SortKeys(cmp)
		if !ok {
			panic(&UnsupportedExpressionError{Node: cmp})
		}
		for _, k := range keys {
			if seen[k.Field.Name] {
				continue
			}
			seen[k.Field.Name] = true
			terms = append(terms, OrderTerm{
				Field:      k.Field,
				Descending: k.Descending(),
				Nulls:      k.EffectiveNulls(),
			})
		}
	}
	return terms
}

// CompileOrderBy renders the ORDER BY list (without the keyword) for the
// given comparators, most significant first. Returns "" for no terms.
func (c *SQLCompiler) CompileOrderBy(cmps ...ir.Comparator) string {
	terms := OrderTerms(cmps...)
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, c.compileTerm(t))
	}
	return strings.Join(parts, ", ")
}

// RenderOrderBy renders comparators as an ORDER BY list for dialect d.
func RenderOrderBy(d *dialect.Dialect, columns ColumnNamer, cmps ...ir.Comparator) string {
	return NewSQLCompiler(d, columns).CompileOrderBy(cmps...)
}

// compileTerm applies the dialect's null-order strategy to one term.
func (c *SQLCompiler) compileTerm(t OrderTerm) string {
	col := c.columns(t.Field)
	dir := "ASC"
	if t.Descending {
		dir = "DESC"
	}
	if t.Nulls != ir.NullsFirst && t.Nulls != ir.NullsLast {
		return col + " " + dir
	}

	first := t.Nulls == ir.NullsFirst
	switch c.dialect.NullOrder {
	case dialect.NullOrderPre:
		if first {
			return col + " IS NOT NULL, " + col + " " + dir
		}
		return col + " IS NULL, " + col + " " + dir
	case dialect.NullOrderPreWithCase:
		if first {
			return "CASE WHEN " + col + " IS NULL THEN 0 ELSE 1 END, " + col + " " + dir
		}
		return "CASE WHEN " + col + " IS NULL THEN 1 ELSE 0 END, " + col + " " + dir
	case dialect.NullOrderPost:
		if first {
			return col + " " + dir + " NULLS FIRST"
		}
		return col + " " + dir + " NULLS LAST"
	default:
		return col + " " + dir
	}
}
