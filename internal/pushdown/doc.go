// Package pushdown decides how much of an entity pipeline can be executed by
// the database and compiles that part into one SQL statement.
//
// A strategy walks the pipeline with a small state machine. The prefix
// strategy recognizes two shapes:
//
//	filter-first  [Filter*, Sorted*, Skip*, Limit*]
//	sorted-first  [Sorted*, Filter*, Skip*, Limit*]
//
// The cursor only moves forward and halts on the first operation that does
// not fit the shape or is not eligible (an opaque predicate, a comparator on
// a field whose mapper does not preserve ordering). Everything from that
// point on stays in the remaining pipeline and is evaluated in memory.
//
// What is matched is then gated by the dialect: a dialect that can only
// paginate after ORDER BY declines a match without a Sorted, and a dialect
// without pagination keeps Skip and Limit in memory.
//
// Strategies never mutate the pipeline they are given. Optimize returns the
// remaining pipeline as a new value.
package pushdown
