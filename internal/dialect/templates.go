package dialect

import (
	"fmt"
	"strings"

	"github.com/roach88/pushdown/internal/ir"
)

// ansiTemplates renders every predicate kind with portable SQL.
var ansiTemplates = map[ir.Kind]Template{
	ir.KindEqual:          binary("="),
	ir.KindNotEqual:       binary("<>"),
	ir.KindLessThan:       binary("<"),
	ir.KindLessOrEqual:    binary("<="),
	ir.KindGreaterThan:    binary(">"),
	ir.KindGreaterOrEqual: binary(">="),
	ir.KindBetween:        between,
	ir.KindNotBetween:     notBetween,
	ir.KindIn:             in("IN", "(1 = 0)"),
	ir.KindNotIn:          in("NOT IN", ""),
	ir.KindIsNull:         constant("%s IS NULL"),
	ir.KindIsNotNull:      constant("%s IS NOT NULL"),
	ir.KindStartsWith:     Like(`'\'`, false, true),
	ir.KindEndsWith:       Like(`'\'`, true, false),
	ir.KindContains:       Like(`'\'`, true, true),
	ir.KindEqualIgnoreCase: func(col string, ops []any, _ ir.Inclusion, bind func(any) string) string {
		return fmt.Sprintf("LOWER(%s) = LOWER(%s)", col, bind(operand(ops, 0)))
	},
	ir.KindNotEqualIgnoreCase: func(col string, ops []any, _ ir.Inclusion, bind func(any) string) string {
		return fmt.Sprintf("LOWER(%s) <> LOWER(%s)", col, bind(operand(ops, 0)))
	},
	ir.KindIsEmpty:     constant("%s = ''"),
	ir.KindIsNotEmpty:  constant("%s <> ''"),
	ir.KindAlwaysTrue:  func(string, []any, ir.Inclusion, func(any) string) string { return "(1 = 1)" },
	ir.KindAlwaysFalse: func(string, []any, ir.Inclusion, func(any) string) string { return "(1 = 0)" },
}

func binary(op string) Template {
	return func(col string, ops []any, _ ir.Inclusion, bind func(any) string) string {
		return col + " " + op + " " + bind(operand(ops, 0))
	}
}

func constant(format string) Template {
	return func(col string, _ []any, _ ir.Inclusion, _ func(any) string) string {
		return fmt.Sprintf(format, col)
	}
}

func between(col string, ops []any, inc ir.Inclusion, bind func(any) string) string {
	if inc.StartInclusive() && inc.EndInclusive() {
		start := bind(operand(ops, 0))
		end := bind(operand(ops, 1))
		return fmt.Sprintf("%s BETWEEN %s AND %s", col, start, end)
	}
	lower, upper := ">", "<"
	if inc.StartInclusive() {
		lower = ">="
	}
	if inc.EndInclusive() {
		upper = "<="
	}
	start := bind(operand(ops, 0))
	end := bind(operand(ops, 1))
	return fmt.Sprintf("(%s %s %s AND %s %s %s)", col, lower, start, col, upper, end)
}

func notBetween(col string, ops []any, inc ir.Inclusion, bind func(any) string) string {
	if inc.StartInclusive() && inc.EndInclusive() {
		start := bind(operand(ops, 0))
		end := bind(operand(ops, 1))
		return fmt.Sprintf("%s NOT BETWEEN %s AND %s", col, start, end)
	}
	below, above := "<=", ">="
	if inc.StartInclusive() {
		below = "<"
	}
	if inc.EndInclusive() {
		above = ">"
	}
	start := bind(operand(ops, 0))
	end := bind(operand(ops, 1))
	return fmt.Sprintf("(%s %s %s OR %s %s %s)", col, below, start, col, above, end)
}

// in renders IN / NOT IN. An empty list renders empty, or "col IS NOT NULL"
// when empty is "".
func in(op, empty string) Template {
	return func(col string, ops []any, _ ir.Inclusion, bind func(any) string) string {
		if len(ops) == 0 {
			if empty == "" {
				return col + " IS NOT NULL"
			}
			return empty
		}
		markers := make([]string, len(ops))
		for i, v := range ops {
			markers[i] = bind(v)
		}
		return fmt.Sprintf("%s %s (%s)", col, op, strings.Join(markers, ", "))
	}
}

// Like renders a pattern match with the operand escaped for LIKE. escape is
// the SQL literal naming the escape character.
func Like(escape string, leading, trailing bool) Template {
	return func(col string, ops []any, _ ir.Inclusion, bind func(any) string) string {
		pattern := EscapeLike(fmt.Sprint(operand(ops, 0)))
		if leading {
			pattern = "%" + pattern
		}
		if trailing {
			pattern += "%"
		}
		return fmt.Sprintf("%s LIKE %s ESCAPE %s", col, bind(pattern), escape)
	}
}

// EscapeLike escapes the LIKE wildcards in s using backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func operand(ops []any, i int) any {
	if i < len(ops) {
		return ops[i]
	}
	return nil
}
