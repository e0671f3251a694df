package pushdown

import (
	"math"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
)

// opClass is the matcher's view of an operation: its kind, or classOther
// when the operation is not eligible for pushdown.
type opClass int

const (
	classFilter opClass = iota
	classSorted
	classSkip
	classLimit
	classOther
	numClasses
)

func (c opClass) String() string {
	switch c {
	case classFilter:
		return "filter"
	case classSorted:
		return "sorted"
	case classSkip:
		return "skip"
	case classLimit:
		return "limit"
	default:
		return "other"
	}
}

// state is a cursor position in a shape. Stage i means the cursor sits on
// the i-th stage; halted is terminal.
type state int

const halted state = -1

// Shape is a fixed sequence of stages the matcher recognizes, each stage
// accepting any number of operations of one class. Transitions never move
// backward.
type Shape struct {
	Name   string
	stages []opClass
	table  [][numClasses]state // table[stage][class] -> next state
}

// newShape builds a shape and its transition table. From stage i, an
// operation of the class at stage j >= i moves the cursor to j; anything
// else halts.
func newShape(name string, stages ...opClass) Shape {
	table := make([][numClasses]state, len(stages))
	for i := range stages {
		for c := opClass(0); c < numClasses; c++ {
			table[i][c] = halted
		}
		for j := i; j < len(stages); j++ {
			if table[i][stages[j]] == halted {
				table[i][stages[j]] = state(j)
			}
		}
	}
	return Shape{Name: name, stages: stages, table: table}
}

// next returns the state reached from s on an operation of class c.
func (sh Shape) next(s state, c opClass) state {
	if s == halted || int(s) >= len(sh.table) {
		return halted
	}
	return sh.table[s][c]
}

var (
	// FilterFirst recognizes [Filter*, Sorted*, Skip*, Limit*].
	FilterFirst = newShape("filter-first", classFilter, classSorted, classSkip, classLimit)
	// SortedFirst recognizes [Sorted*, Filter*, Skip*, Limit*].
	SortedFirst = newShape("sorted-first", classSorted, classFilter, classSkip, classLimit)
	// FiltersOnly recognizes [Filter*].
	FiltersOnly = newShape("filters-only", classFilter)
)

// pickPrefixShape chooses the sorted-first shape when the pipeline starts
// with a Sorted operation and the filter-first shape otherwise.
func pickPrefixShape(p ir.Pipeline) Shape {
	if len(p) > 0 {
		if _, ok := p[0].(ir.Sorted); ok {
			return SortedFirst
		}
	}
	return FilterFirst
}

// match is the outcome of walking a pipeline with a shape.
type match struct {
	shape    Shape
	consumed int // length of the matched prefix

	filters []ir.Predicate  // encounter order
	sorts   []ir.Comparator // encounter order
	skips   []int64
	limits  []int64

	filterIdx    []int
	sortIdx      []int
	skipLimitIdx []int
}

// walk runs the state machine over p. It stops at the first operation that
// has no transition from the current state; that operation and everything
// after it are left untouched.
func walk(sh Shape, p ir.Pipeline) match {
	m := match{shape: sh}
	s := state(0)
	if len(sh.stages) == 0 {
		s = halted
	}
	for i, op := range p {
		s = sh.next(s, classify(op))
		if s == halted {
			break
		}
		switch o := op.(type) {
		case ir.Filter:
			m.filters = append(m.filters, o.Predicate)
			m.filterIdx = append(m.filterIdx, i)
		case ir.Sorted:
			m.sorts = append(m.sorts, o.Comparator)
			m.sortIdx = append(m.sortIdx, i)
		case ir.Skip:
			m.skips = append(m.skips, o.N)
			m.skipLimitIdx = append(m.skipLimitIdx, i)
		case ir.Limit:
			m.limits = append(m.limits, o.N)
			m.skipLimitIdx = append(m.skipLimitIdx, i)
		}
		m.consumed = i + 1
	}
	return m
}

// classify maps an operation to its class, or classOther when it is not
// eligible for pushdown.
func classify(op ir.Operation) opClass {
	switch o := op.(type) {
	case ir.Filter:
		if FilterEligible(o.Predicate) {
			return classFilter
		}
	case ir.Sorted:
		if SortedEligible(o.Comparator) {
			return classSorted
		}
	case ir.Skip:
		if o.N >= 0 {
			return classSkip
		}
	case ir.Limit:
		if o.N >= 0 {
			return classLimit
		}
	}
	return classOther
}

// FilterEligible reports whether a predicate can be rendered without changing
// its meaning: it must be built solely from field-derived atoms, and every
// comparative atom must sit on an ordering-preserving field.
func FilterEligible(p ir.Predicate) bool {
	if !ir.FieldDerived(p) {
		return false
	}
	for _, a := range ir.Atoms(p) {
		if a.Kind.Comparative() && !a.Field.OrderingPreserving() {
			return false
		}
	}
	return true
}

// SortedEligible reports whether a comparator can be rendered as ORDER BY:
// it must be field-derived, have at least one key, and every key's field
// must preserve ordering. A keyless chain renders no ORDER BY and so cannot
// satisfy a dialect that paginates only after sorting.
func SortedEligible(c ir.Comparator) bool {
	keys, ok := ir.SortKeys(c)
	if !ok || len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !k.Field.OrderingPreserving() {
			return false
		}
	}
	return true
}

// plan is a match after capability gating.
type plan struct {
	match
	metrics  Metrics
	paginate bool
	page     pageSpec
}

type pageSpec struct {
	skip  int64
	limit int64
}

// finalize applies the dialect's pagination capability to a match.
//
// ONLY_AFTER_SORTED without a matched Sorted declines entirely. NONE pushes
// filters and sorts only; matched skips and limits are still counted in the
// metrics but stay in the remaining pipeline. Otherwise skips are summed,
// saturating at math.MaxInt64, and limits reduced to their minimum.
func finalize(m match, d *dialect.Dialect, gate bool) plan {
	if gate && d.Pagination == dialect.PaginationOnlyAfterSorted && len(m.sorts) == 0 {
		return plan{match: match{shape: m.shape}}
	}

	pl := plan{match: m}
	pl.metrics = Metrics{
		FiltersHandled: len(m.filters),
		SortsHandled:   len(m.sorts),
	}
	if len(m.skips) > 0 {
		pl.metrics.SkipHandled = 1
	}
	if len(m.limits) > 0 {
		pl.metrics.LimitHandled = 1
	}
	pl.metrics.Total = total(pl.metrics)

	if d.Pagination == dialect.PaginationNone || (len(m.skips) == 0 && len(m.limits) == 0) {
		return pl
	}

	pl.paginate = true
	pl.page.limit = dialect.NoLimit
	for _, n := range m.skips {
		pl.page.skip = addSkip(pl.page.skip, n)
	}
	for i, n := range m.limits {
		if i == 0 || n < pl.page.limit {
			pl.page.limit = n
		}
	}
	return pl
}

// addSkip adds two non-negative skips, saturating at math.MaxInt64. An
// offset that large already skips every row.
func addSkip(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// pushedIndexes returns the pipeline positions removed by the plan.
func (pl plan) pushedIndexes() map[int]bool {
	pushed := make(map[int]bool, pl.consumed)
	for _, i := range pl.filterIdx {
		pushed[i] = true
	}
	for _, i := range pl.sortIdx {
		pushed[i] = true
	}
	if pl.paginate {
		for _, i := range pl.skipLimitIdx {
			pushed[i] = true
		}
	}
	return pushed
}
