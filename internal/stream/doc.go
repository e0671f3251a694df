// Package stream evaluates pipelines in memory over ir.Row values.
//
// It runs whatever the optimizer left in the remaining pipeline, and it is
// the reference the pushed-down SQL is checked against: for any pipeline,
// executing the pushed statement and then the remaining operations must
// yield the same rows as Apply on the unfiltered table.
package stream
