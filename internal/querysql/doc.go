// Package querysql renders ir predicate and comparator trees into
// dialect-correct SQL fragments with an ordered list of bind values.
//
// Values are never interpolated into SQL text. Every operand is passed
// through its field's TypeMapper and bound, and the order of the returned
// values matches the order of the placeholders exactly: depth-first,
// left-to-right over the predicate tree, followed by any values the
// dialect's pagination clause binds.
package querysql
