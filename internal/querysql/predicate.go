package querysql

import (
	"strings"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
)

// RenderPredicate renders p as a standalone SQL fragment for dialect d.
// It returns the fragment and its values in placeholder order. A predicate
// that simplifies to ALWAYS_TRUE renders as the empty string.
func RenderPredicate(d *dialect.Dialect, columns ColumnNamer, p ir.Predicate) (string, []any) {
	c := NewSQLCompiler(d, columns)
	return c.CompilePredicate(p)
}

// CompilePredicate renders p and returns the fragment together with the
// values bound by this fragment only.
//
// ALWAYS_TRUE leaves are pruned at every nesting level before rendering
// (see ir.Simplify). Combined nodes render their children depth-first,
// left-to-right, wrapped in parentheses.
//
// Panics with *UnsupportedExpressionError when p contains a node that is
// neither atomic nor combined. Callers must check eligibility first.
func (c *SQLCompiler) CompilePredicate(p ir.Predicate) (string, []any) {
	if p == nil {
		panic(&UnsupportedExpressionError{Node: p})
	}
	simplified, alwaysTrue := ir.Simplify(p)
	if alwaysTrue {
		return "", nil
	}
	start := len(c.values)
	sql := c.compileNode(simplified)
	bound := make([]any, len(c.values)-start)
	copy(bound, c.values[start:])
	return sql, bound
}

func (c *SQLCompiler) compileNode(p ir.Predicate) string {
	switch pred := p.(type) {
	case ir.Atomic:
		return c.compileAtomic(pred)
	case ir.Combined:
		return c.compileCombined(pred)
	default:
		panic(&UnsupportedExpressionError{Node: p})
	}
}

// compileAtomic delegates to the dialect template for the predicate kind.
// Operands are converted with the field's TypeMapper before binding.
func (c *SQLCompiler) compileAtomic(a ir.Atomic) string {
	tmpl, ok := c.dialect.Template(a.Kind)
	if !ok {
		panic(&UnsupportedExpressionError{Node: a})
	}
	mapper := a.Field.TypeMapper()
	ops := make([]any, len(a.Operands))
	for i, v := range a.Operands {
		ops[i] = mapper.ToStorage(v)
	}
	return tmpl(c.columns(a.Field), ops, a.Inclusion, c.bind)
}

// compileCombined joins children with AND / OR. An empty conjunction is
// true and an empty disjunction is false.
func (c *SQLCompiler) compileCombined(cp ir.Combined) string {
	if len(cp.Children) == 0 {
		if cp.Op == ir.OpOr {
			return "(1 = 0)"
		}
		return "(1 = 1)"
	}
	parts := make([]string, len(cp.Children))
	for i, child := range cp.Children {
		parts[i] = c.compileNode(child)
	}
	var sep string
	switch cp.Op {
	case ir.OpAnd:
		sep = " AND "
	case ir.OpOr:
		sep = " OR "
	default:
		panic(&UnsupportedExpressionError{Node: cp})
	}
	return "(" + strings.Join(parts, sep) + ")"
}
