// Package ir provides the value trees that describe a pending entity query.
//
// This package contains type definitions and builders only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// query model the foundational layer with no circular dependencies.
//
// A query is a Pipeline: an ordered slice of Operation values (Filter,
// Sorted, Skip, Limit, Other). Filters carry a Predicate tree and sorts carry
// a Comparator. Both trees are built only from typed Field references, so the
// optimizer can decide whether the tree can be expressed in SQL.
//
// SEALED INTERFACES:
//
// Operation, Predicate and Comparator are sealed interfaces using the marker
// method pattern. Only types in this package implement them, which lets the
// renderer and the optimizer use exhaustive type switches:
//
//	switch p := pred.(type) {
//	case Atomic:
//	    // field-derived leaf
//	case Combined:
//	    // AND / OR of children
//	case Opaque:
//	    // caller lambda, in-memory only
//	}
//
// Key design constraints:
//   - Trees are immutable once built; builders return new values
//   - Operands are domain values; TypeMapper converts them for storage
//   - A Pipeline is never mutated by the optimizer, it returns a new one
package ir
