package stream

import (
	"fmt"
	"sort"

	"github.com/roach88/pushdown/internal/ir"
)

// Apply evaluates the pipeline over rows in memory and returns the result.
// The input slice is not modified.
func Apply(rows []ir.Row, p ir.Pipeline) ([]ir.Row, error) {
	out := make([]ir.Row, len(rows))
	copy(out, rows)

	for i, op := range p {
		var err error
		out, err = applyOne(out, op)
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, ir.Describe(op), err)
		}
	}
	return out, nil
}

func applyOne(rows []ir.Row, op ir.Operation) ([]ir.Row, error) {
	switch o := op.(type) {
	case ir.Filter:
		kept := rows[:0:0]
		for _, r := range rows {
			ok, err := Test(o.Predicate, r)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, r)
			}
		}
		return kept, nil
	case ir.Sorted:
		return sortRows(rows, o.Comparator)
	case ir.Skip:
		if o.N < 0 {
			return nil, fmt.Errorf("negative skip %d", o.N)
		}
		if o.N >= int64(len(rows)) {
			return []ir.Row{}, nil
		}
		return rows[o.N:], nil
	case ir.Limit:
		if o.N < 0 {
			return nil, fmt.Errorf("negative limit %d", o.N)
		}
		if o.N < int64(len(rows)) {
			return rows[:o.N], nil
		}
		return rows, nil
	case ir.Other:
		if o.Apply == nil {
			return rows, nil
		}
		return o.Apply(rows), nil
	case nil:
		return nil, fmt.Errorf("nil operation")
	default:
		return nil, fmt.Errorf("unsupported operation %T", op)
	}
}

// sortRows stable-sorts a copy of rows. The first comparison error aborts
// the sort.
func sortRows(rows []ir.Row, c ir.Comparator) ([]ir.Row, error) {
	cmp, err := comparatorFunc(c)
	if err != nil {
		return nil, err
	}
	out := make([]ir.Row, len(rows))
	copy(out, rows)

	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		n, err := cmp(out[i], out[j])
		if err != nil {
			sortErr = err
			return false
		}
		return n < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

type rowCompare func(a, b ir.Row) (int, error)

func comparatorFunc(c ir.Comparator) (rowCompare, error) {
	switch cmp := c.(type) {
	case ir.SortKey:
		return keyCompare(cmp), nil
	case ir.Chain:
		keys := make([]rowCompare, len(cmp.Keys))
		for i, k := range cmp.Keys {
			keys[i] = keyCompare(k)
		}
		return func(a, b ir.Row) (int, error) {
			for _, k := range keys {
				n, err := k(a, b)
				if err != nil || n != 0 {
					return n, err
				}
			}
			return 0, nil
		}, nil
	case ir.OpaqueComparator:
		if cmp.Compare == nil {
			return nil, fmt.Errorf("opaque comparator %q has no compare function", cmp.Name)
		}
		return func(a, b ir.Row) (int, error) {
			return cmp.Compare(a, b), nil
		}, nil
	case nil:
		return nil, fmt.Errorf("nil comparator")
	default:
		return nil, fmt.Errorf("unsupported comparator %T", c)
	}
}

// keyCompare orders by one key. Placement of nulls is defined for the
// ascending order (NONE places them first, as SQLite does) and the whole
// comparison is inverted for a reversed key.
func keyCompare(k ir.SortKey) rowCompare {
	nullsFirst := k.Nulls != ir.NullsLast
	return func(a, b ir.Row) (int, error) {
		av, bv := a.Get(k.Field), b.Get(k.Field)
		var n int
		switch {
		case av == nil && bv == nil:
			n = 0
		case av == nil:
			n = 1
			if nullsFirst {
				n = -1
			}
		case bv == nil:
			n = -1
			if nullsFirst {
				n = 1
			}
		default:
			var err error
			n, err = Compare(av, bv)
			if err != nil {
				return 0, fmt.Errorf("sort by %s: %w", k.Field.Name, err)
			}
		}
		if k.Reversed {
			n = -n
		}
		return n, nil
	}
}
