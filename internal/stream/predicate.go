package stream

import (
	"fmt"
	"strings"

	"github.com/roach88/pushdown/internal/ir"
)

// Test evaluates p against row.
//
// Comparisons follow SQL: an atom on a NULL field is false unless its kind
// is IS_NULL, IS_NOT_NULL, ALWAYS_TRUE or ALWAYS_FALSE. An empty AND is true
// and an empty OR is false.
func Test(p ir.Predicate, row ir.Row) (bool, error) {
	switch pred := p.(type) {
	case ir.Atomic:
		return testAtomic(pred, row)
	case ir.Combined:
		return testCombined(pred, row)
	case ir.Opaque:
		if pred.Test == nil {
			return false, fmt.Errorf("opaque predicate %q has no test function", pred.Name)
		}
		return pred.Test(row), nil
	case nil:
		return false, fmt.Errorf("nil predicate")
	default:
		return false, fmt.Errorf("unsupported predicate %T", p)
	}
}

func testCombined(c ir.Combined, row ir.Row) (bool, error) {
	switch c.Op {
	case ir.OpAnd:
		for _, child := range c.Children {
			ok, err := Test(child, row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case ir.OpOr:
		for _, child := range c.Children {
			ok, err := Test(child, row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unsupported operator %q", c.Op)
	}
}

func testAtomic(a ir.Atomic, row ir.Row) (bool, error) {
	switch a.Kind {
	case ir.KindAlwaysTrue:
		return true, nil
	case ir.KindAlwaysFalse:
		return false, nil
	}

	v := row.Get(a.Field)
	switch a.Kind {
	case ir.KindIsNull:
		return v == nil, nil
	case ir.KindIsNotNull:
		return v != nil, nil
	}
	if v == nil {
		return false, nil
	}

	switch a.Kind {
	case ir.KindEqual:
		return equalOperand(v, a.Operands, 0), nil
	case ir.KindNotEqual:
		op := operand(a.Operands, 0)
		return op != nil && !Equal(v, op), nil
	case ir.KindLessThan, ir.KindLessOrEqual, ir.KindGreaterThan, ir.KindGreaterOrEqual:
		op := operand(a.Operands, 0)
		if op == nil {
			return false, nil
		}
		c, err := Compare(v, op)
		if err != nil {
			return false, err
		}
		switch a.Kind {
		case ir.KindLessThan:
			return c < 0, nil
		case ir.KindLessOrEqual:
			return c <= 0, nil
		case ir.KindGreaterThan:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case ir.KindBetween, ir.KindNotBetween:
		return testRange(a, v)
	case ir.KindIn:
		for i := range a.Operands {
			if equalOperand(v, a.Operands, i) {
				return true, nil
			}
		}
		return false, nil
	case ir.KindNotIn:
		for i, op := range a.Operands {
			if op == nil || equalOperand(v, a.Operands, i) {
				return false, nil
			}
		}
		return true, nil
	case ir.KindStartsWith, ir.KindEndsWith, ir.KindContains,
		ir.KindEqualIgnoreCase, ir.KindNotEqualIgnoreCase:
		return testText(a, v)
	case ir.KindIsEmpty, ir.KindIsNotEmpty:
		s, ok := text(v)
		if !ok {
			return false, fmt.Errorf("%s on non-text field %s", a.Kind, a.Field.Name)
		}
		return (s == "") == (a.Kind == ir.KindIsEmpty), nil
	default:
		return false, fmt.Errorf("unsupported predicate kind %q", a.Kind)
	}
}

func testRange(a ir.Atomic, v any) (bool, error) {
	lo, hi := operand(a.Operands, 0), operand(a.Operands, 1)
	if lo == nil || hi == nil {
		return false, nil
	}
	cl, err := Compare(v, lo)
	if err != nil {
		return false, err
	}
	ch, err := Compare(v, hi)
	if err != nil {
		return false, err
	}
	aboveLo := cl > 0 || (cl == 0 && a.Inclusion.StartInclusive())
	belowHi := ch < 0 || (ch == 0 && a.Inclusion.EndInclusive())
	inside := aboveLo && belowHi
	if a.Kind == ir.KindNotBetween {
		return !inside, nil
	}
	return inside, nil
}

func testText(a ir.Atomic, v any) (bool, error) {
	s, ok := text(v)
	if !ok {
		return false, fmt.Errorf("%s on non-text field %s", a.Kind, a.Field.Name)
	}
	op := operand(a.Operands, 0)
	if op == nil {
		return false, nil
	}
	arg := fmt.Sprint(op)
	switch a.Kind {
	case ir.KindStartsWith:
		return strings.HasPrefix(s, arg), nil
	case ir.KindEndsWith:
		return strings.HasSuffix(s, arg), nil
	case ir.KindContains:
		return strings.Contains(s, arg), nil
	case ir.KindEqualIgnoreCase:
		return strings.ToLower(s) == strings.ToLower(arg), nil
	default:
		return strings.ToLower(s) != strings.ToLower(arg), nil
	}
}

func equalOperand(v any, ops []any, i int) bool {
	op := operand(ops, i)
	return op != nil && Equal(v, op)
}

func operand(ops []any, i int) any {
	if i < len(ops) {
		return ops[i]
	}
	return nil
}
