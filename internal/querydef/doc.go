// Package querydef loads declarative query definitions from YAML or CUE and
// compiles them into ir fields and pipelines.
//
// Unknown keys are rejected. Names of kinds, inclusions and null orders are
// matched case-insensitively, so "greater_or_equal" and "GREATER_OR_EQUAL"
// are the same kind.
package querydef
