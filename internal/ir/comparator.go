package ir

import (
	"fmt"
	"strings"
)

// Comparator represents an ordering over entities.
//
// This is a sealed interface - only types in this package implement it.
//
// Comparator types:
//   - SortKey: order by a single field
//   - Chain: first key wins, later keys break ties
//   - OpaqueComparator: caller-supplied ordering, in-memory only
type Comparator interface {
	comparatorNode() // Marker method - seals interface to this package
}

// NullOrder places null values relative to non-null values.
type NullOrder string

const (
	NullsNone  NullOrder = "NONE"
	NullsFirst NullOrder = "FIRST"
	NullsLast  NullOrder = "LAST"
)

// Reverse swaps FIRST and LAST; NONE is unchanged.
func (n NullOrder) Reverse() NullOrder {
	switch n {
	case NullsFirst:
		return NullsLast
	case NullsLast:
		return NullsFirst
	default:
		return n
	}
}

// ParseNullOrder resolves a null order from its name. Empty means NONE.
func ParseNullOrder(s string) (NullOrder, error) {
	n := NullOrder(strings.ToUpper(strings.TrimSpace(s)))
	switch n {
	case "", NullsNone:
		return NullsNone, nil
	case NullsFirst, NullsLast:
		return n, nil
	}
	return "", fmt.Errorf("unknown null order %q", s)
}

// SortKey orders entities by one field, ascending unless Reversed.
//
// Nulls describes where nulls go in the ascending order; reversing the key
// reverses the null placement as well.
type SortKey struct {
	Field    Field
	Reversed bool
	Nulls    NullOrder
}

func (SortKey) comparatorNode() {}

// Reverse returns the key with its direction and null placement inverted.
func (k SortKey) Reverse() SortKey {
	k.Reversed = !k.Reversed
	return k
}

// NullsFirst returns the key with nulls placed first in ascending order.
func (k SortKey) NullsFirst() SortKey {
	k.Nulls = NullsFirst
	return k
}

// NullsLast returns the key with nulls placed last in ascending order.
func (k SortKey) NullsLast() SortKey {
	k.Nulls = NullsLast
	return k
}

// Descending reports the effective direction of the key.
func (k SortKey) Descending() bool {
	return k.Reversed
}

// EffectiveNulls returns the null placement after applying Reversed.
func (k SortKey) EffectiveNulls() NullOrder {
	nulls := k.Nulls
	if nulls == "" {
		nulls = NullsNone
	}
	if k.Reversed {
		return nulls.Reverse()
	}
	return nulls
}

// Chain is a prioritized list of sort keys. Earlier keys take precedence.
type Chain struct {
	Keys []SortKey
}

func (Chain) comparatorNode() {}

// ThenBy appends a tie-breaking key.
func (c Chain) ThenBy(key SortKey) Chain {
	keys := make([]SortKey, 0, len(c.Keys)+1)
	keys = append(keys, c.Keys...)
	keys = append(keys, key)
	return Chain{Keys: keys}
}

// Reverse reverses every key of the chain.
func (c Chain) Reverse() Chain {
	keys := make([]SortKey, len(c.Keys))
	for i, k := range c.Keys {
		keys[i] = k.Reverse()
	}
	return Chain{Keys: keys}
}

// OpaqueComparator orders entities with caller code. It is evaluated in
// memory only and makes the enclosing Sorted ineligible for pushdown.
type OpaqueComparator struct {
	Name    string
	Compare func(a, b Row) int
}

func (OpaqueComparator) comparatorNode() {}

// Asc orders by the field ascending.
func (f Field) Asc() SortKey {
	return SortKey{Field: f, Nulls: NullsNone}
}

// Desc orders by the field descending.
func (f Field) Desc() SortKey {
	return SortKey{Field: f, Reversed: true, Nulls: NullsNone}
}

// ThenBy starts a chain from k followed by next.
func (k SortKey) ThenBy(next SortKey) Chain {
	return Chain{Keys: []SortKey{k, next}}
}

// ChainOf builds a chain from keys.
func ChainOf(keys ...SortKey) Chain {
	return Chain{Keys: keys}
}

// SortKeys flattens c into its sort keys in priority order. The second result
// is false when c is not field-derived.
func SortKeys(c Comparator) ([]SortKey, bool) {
	switch cmp := c.(type) {
	case SortKey:
		return []SortKey{cmp}, true
	case Chain:
		return cmp.Keys, true
	default:
		return nil, false
	}
}

// DescribeComparator renders c in a compact, human-readable form.
func DescribeComparator(c Comparator) string {
	keys, ok := SortKeys(c)
	if !ok {
		if oc, isOpaque := c.(OpaqueComparator); isOpaque && oc.Name != "" {
			return "opaque(" + oc.Name + ")"
		}
		return "opaque"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		dir := "asc"
		if k.Descending() {
			dir = "desc"
		}
		part := k.Field.Name + " " + dir
		if nulls := k.EffectiveNulls(); nulls != NullsNone {
			part += " nulls " + strings.ToLower(string(nulls))
		}
		parts[i] = part
	}
	return strings.Join(parts, ", ")
}
