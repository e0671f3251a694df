package ir

import (
	"fmt"
	"strings"
)

// Predicate represents a filter condition on an entity.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Atomic: a single field compared against operands
//   - Combined: AND / OR of child predicates
//   - Opaque: a caller-supplied test that cannot be expressed in SQL
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Kind identifies the comparison performed by an Atomic predicate.
type Kind string

const (
	KindEqual              Kind = "EQUAL"
	KindNotEqual           Kind = "NOT_EQUAL"
	KindLessThan           Kind = "LESS_THAN"
	KindLessOrEqual        Kind = "LESS_OR_EQUAL"
	KindGreaterThan        Kind = "GREATER_THAN"
	KindGreaterOrEqual     Kind = "GREATER_OR_EQUAL"
	KindBetween            Kind = "BETWEEN"
	KindNotBetween         Kind = "NOT_BETWEEN"
	KindIn                 Kind = "IN"
	KindNotIn              Kind = "NOT_IN"
	KindIsNull             Kind = "IS_NULL"
	KindIsNotNull          Kind = "IS_NOT_NULL"
	KindStartsWith         Kind = "STARTS_WITH"
	KindEndsWith           Kind = "ENDS_WITH"
	KindContains           Kind = "CONTAINS"
	KindEqualIgnoreCase    Kind = "EQUAL_IGNORE_CASE"
	KindNotEqualIgnoreCase Kind = "NOT_EQUAL_IGNORE_CASE"
	KindIsEmpty            Kind = "IS_EMPTY"
	KindIsNotEmpty         Kind = "IS_NOT_EMPTY"
	KindAlwaysTrue         Kind = "ALWAYS_TRUE"
	KindAlwaysFalse        Kind = "ALWAYS_FALSE"
)

// Kinds lists every predicate kind in declaration order.
var Kinds = []Kind{
	KindEqual, KindNotEqual,
	KindLessThan, KindLessOrEqual, KindGreaterThan, KindGreaterOrEqual,
	KindBetween, KindNotBetween,
	KindIn, KindNotIn,
	KindIsNull, KindIsNotNull,
	KindStartsWith, KindEndsWith, KindContains,
	KindEqualIgnoreCase, KindNotEqualIgnoreCase,
	KindIsEmpty, KindIsNotEmpty,
	KindAlwaysTrue, KindAlwaysFalse,
}

// ParseKind resolves a kind from its name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown predicate kind %q", s)
}

// Comparative reports whether the kind's result depends on the ordering or
// textual shape of the stored value. Such predicates change meaning when the
// field's mapper does not preserve order.
func (k Kind) Comparative() bool {
	switch k {
	case KindLessThan, KindLessOrEqual, KindGreaterThan, KindGreaterOrEqual,
		KindBetween, KindNotBetween,
		KindStartsWith, KindEndsWith, KindContains,
		KindEqualIgnoreCase, KindNotEqualIgnoreCase:
		return true
	default:
		return false
	}
}

// Arity returns the number of operands the kind expects, or -1 for a list.
func (k Kind) Arity() int {
	switch k {
	case KindIsNull, KindIsNotNull, KindIsEmpty, KindIsNotEmpty, KindAlwaysTrue, KindAlwaysFalse:
		return 0
	case KindBetween, KindNotBetween:
		return 2
	case KindIn, KindNotIn:
		return -1
	default:
		return 1
	}
}

// Inclusion controls which range endpoints a BETWEEN predicate includes.
type Inclusion string

const (
	StartInclusiveEndInclusive Inclusion = "START_INCLUSIVE_END_INCLUSIVE"
	StartInclusiveEndExclusive Inclusion = "START_INCLUSIVE_END_EXCLUSIVE"
	StartExclusiveEndInclusive Inclusion = "START_EXCLUSIVE_END_INCLUSIVE"
	StartExclusiveEndExclusive Inclusion = "START_EXCLUSIVE_END_EXCLUSIVE"
)

// StartInclusive reports whether the lower bound is part of the range.
// The zero value behaves as StartInclusiveEndInclusive.
func (i Inclusion) StartInclusive() bool {
	return i == "" || i == StartInclusiveEndInclusive || i == StartInclusiveEndExclusive
}

// EndInclusive reports whether the upper bound is part of the range.
func (i Inclusion) EndInclusive() bool {
	return i == "" || i == StartInclusiveEndInclusive || i == StartExclusiveEndInclusive
}

// ParseInclusion resolves an inclusion from its name. Empty means fully inclusive.
func ParseInclusion(s string) (Inclusion, error) {
	inc := Inclusion(strings.ToUpper(strings.TrimSpace(s)))
	switch inc {
	case "":
		return StartInclusiveEndInclusive, nil
	case StartInclusiveEndInclusive, StartInclusiveEndExclusive,
		StartExclusiveEndInclusive, StartExclusiveEndExclusive:
		return inc, nil
	}
	return "", fmt.Errorf("unknown inclusion %q", s)
}

// Atomic is a field-derived predicate leaf.
//
// Semantics:
//
//	<field> <kind> <operands...>
//
// Operands hold domain values; the renderer passes them through the field's
// TypeMapper before binding them.
type Atomic struct {
	Field     Field
	Kind      Kind
	Operands  []any
	Inclusion Inclusion // BETWEEN / NOT_BETWEEN only
}

func (Atomic) predicateNode() {}

// Operator joins the children of a Combined predicate.
type Operator string

const (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
)

// Combined represents a conjunction or disjunction of predicates.
//
// An empty AND is vacuously true; an empty OR is false.
type Combined struct {
	Op       Operator
	Children []Predicate
}

func (Combined) predicateNode() {}

// Opaque is a predicate the caller expressed as Go code. It is evaluated in
// memory only and makes the enclosing Filter ineligible for pushdown.
type Opaque struct {
	Name string
	Test func(Row) bool
}

func (Opaque) predicateNode() {}

// And combines predicates with the logical AND operator.
func And(children ...Predicate) Combined {
	return Combined{Op: OpAnd, Children: children}
}

// Or combines predicates with the logical OR operator.
func Or(children ...Predicate) Combined {
	return Combined{Op: OpOr, Children: children}
}

// AlwaysTrue returns a predicate that accepts every entity.
func AlwaysTrue() Atomic {
	return Atomic{Kind: KindAlwaysTrue}
}

// AlwaysFalse returns a predicate that rejects every entity.
func AlwaysFalse() Atomic {
	return Atomic{Kind: KindAlwaysFalse}
}

func (f Field) atom(kind Kind, operands ...any) Atomic {
	return Atomic{Field: f, Kind: kind, Operands: operands}
}

// Equal matches entities whose field equals v.
func (f Field) Equal(v any) Atomic { return f.atom(KindEqual, v) }

// NotEqual matches entities whose field is not null and differs from v.
func (f Field) NotEqual(v any) Atomic { return f.atom(KindNotEqual, v) }

// LessThan matches entities whose field is < v.
func (f Field) LessThan(v any) Atomic { return f.atom(KindLessThan, v) }

// LessOrEqual matches entities whose field is <= v.
func (f Field) LessOrEqual(v any) Atomic { return f.atom(KindLessOrEqual, v) }

// GreaterThan matches entities whose field is > v.
func (f Field) GreaterThan(v any) Atomic { return f.atom(KindGreaterThan, v) }

// GreaterOrEqual matches entities whose field is >= v.
func (f Field) GreaterOrEqual(v any) Atomic { return f.atom(KindGreaterOrEqual, v) }

// Between matches entities whose field lies within [start, end].
func (f Field) Between(start, end any) Atomic {
	return f.BetweenWith(start, end, StartInclusiveEndInclusive)
}

// BetweenWith is Between with explicit endpoint inclusion.
func (f Field) BetweenWith(start, end any, inclusion Inclusion) Atomic {
	a := f.atom(KindBetween, start, end)
	a.Inclusion = inclusion
	return a
}

// NotBetween matches entities whose field lies outside [start, end].
func (f Field) NotBetween(start, end any) Atomic {
	return f.NotBetweenWith(start, end, StartInclusiveEndInclusive)
}

// NotBetweenWith is NotBetween with explicit endpoint inclusion.
func (f Field) NotBetweenWith(start, end any, inclusion Inclusion) Atomic {
	a := f.atom(KindNotBetween, start, end)
	a.Inclusion = inclusion
	return a
}

// In matches entities whose field equals one of values.
func (f Field) In(values ...any) Atomic { return f.atom(KindIn, values...) }

// NotIn matches entities whose field is not null and equals none of values.
func (f Field) NotIn(values ...any) Atomic { return f.atom(KindNotIn, values...) }

// IsNull matches entities whose field is null.
func (f Field) IsNull() Atomic { return f.atom(KindIsNull) }

// IsNotNull matches entities whose field is not null.
func (f Field) IsNotNull() Atomic { return f.atom(KindIsNotNull) }

// StartsWith matches string fields with the given prefix.
func (f Field) StartsWith(prefix string) Atomic { return f.atom(KindStartsWith, prefix) }

// EndsWith matches string fields with the given suffix.
func (f Field) EndsWith(suffix string) Atomic { return f.atom(KindEndsWith, suffix) }

// Contains matches string fields containing the given text.
func (f Field) Contains(text string) Atomic { return f.atom(KindContains, text) }

// EqualIgnoreCase matches string fields equal to s regardless of case.
func (f Field) EqualIgnoreCase(s string) Atomic { return f.atom(KindEqualIgnoreCase, s) }

// NotEqualIgnoreCase matches string fields that differ from s regardless of case.
func (f Field) NotEqualIgnoreCase(s string) Atomic { return f.atom(KindNotEqualIgnoreCase, s) }

// IsEmpty matches string fields equal to "".
func (f Field) IsEmpty() Atomic { return f.atom(KindIsEmpty) }

// IsNotEmpty matches non-null string fields other than "".
func (f Field) IsNotEmpty() Atomic { return f.atom(KindIsNotEmpty) }

// FieldDerived reports whether p is built solely from Atomic and Combined
// nodes. A nil predicate is not field-derived.
func FieldDerived(p Predicate) bool {
	switch pred := p.(type) {
	case Atomic:
		return true
	case Combined:
		for _, child := range pred.Children {
			if !FieldDerived(child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Atoms returns the Atomic leaves of p in depth-first, left-to-right order.
func Atoms(p Predicate) []Atomic {
	var out []Atomic
	var walk func(Predicate)
	walk = func(n Predicate) {
		switch pred := n.(type) {
		case Atomic:
			out = append(out, pred)
		case Combined:
			for _, child := range pred.Children {
				walk(child)
			}
		}
	}
	walk(p)
	return out
}

// Simplify removes ALWAYS_TRUE leaves at every nesting level.
//
// Inside AND an ALWAYS_TRUE child is dropped. Inside OR an ALWAYS_TRUE child
// makes the whole disjunction ALWAYS_TRUE. A Combined node left with no
// children after pruning is itself ALWAYS_TRUE when it is an AND.
//
// The second result is true when the whole predicate reduced to ALWAYS_TRUE;
// the first result is then nil. Opaque nodes are returned unchanged.
func Simplify(p Predicate) (Predicate, bool) {
	switch pred := p.(type) {
	case Atomic:
		if pred.Kind == KindAlwaysTrue {
			return nil, true
		}
		return pred, false
	case Combined:
		children := make([]Predicate, 0, len(pred.Children))
		for _, child := range pred.Children {
			simplified, alwaysTrue := Simplify(child)
			if alwaysTrue {
				if pred.Op == OpOr {
					return nil, true
				}
				continue
			}
			children = append(children, simplified)
		}
		if len(children) == 0 && pred.Op == OpAnd {
			return nil, true
		}
		return Combined{Op: pred.Op, Children: children}, false
	default:
		return p, false
	}
}

// DescribePredicate renders p in a compact, human-readable form.
func DescribePredicate(p Predicate) string {
	switch pred := p.(type) {
	case Atomic:
		if pred.Kind == KindAlwaysTrue || pred.Kind == KindAlwaysFalse {
			return string(pred.Kind)
		}
		if len(pred.Operands) == 0 {
			return fmt.Sprintf("%s %s", pred.Field.Name, pred.Kind)
		}
		return fmt.Sprintf("%s %s %v", pred.Field.Name, pred.Kind, pred.Operands)
	case Combined:
		parts := make([]string, len(pred.Children))
		for i, child := range pred.Children {
			parts[i] = DescribePredicate(child)
		}
		return "(" + strings.Join(parts, " "+string(pred.Op)+" ") + ")"
	case Opaque:
		if pred.Name != "" {
			return "opaque(" + pred.Name + ")"
		}
		return "opaque"
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%T", p)
	}
}
