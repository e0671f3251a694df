package ir

import (
	"fmt"
	"strings"
)

// Operation is one pending step of an entity pipeline.
//
// This is a sealed interface - only types in this package implement it.
//
// Operation types:
//   - Filter: keep entities matching a predicate
//   - Sorted: stable sort by a comparator
//   - Skip: drop the first N entities
//   - Limit: keep at most N entities
//   - Other: any other step; never pushed down
type Operation interface {
	operationNode() // Marker method - seals interface to this package
}

// Filter keeps entities for which Predicate holds.
type Filter struct {
	Predicate Predicate
}

func (Filter) operationNode() {}

// Sorted stable-sorts entities by Comparator.
type Sorted struct {
	Comparator Comparator
}

func (Sorted) operationNode() {}

// Skip drops the first N entities.
type Skip struct {
	N int64
}

func (Skip) operationNode() {}

// Limit truncates the stream to at most N entities.
type Limit struct {
	N int64
}

func (Limit) operationNode() {}

// Other is an operation the optimizer does not understand (map, peek,
// distinct, ...). Apply is used by in-memory evaluation; nil means identity.
type Other struct {
	Name  string
	Apply func([]Row) []Row
}

func (Other) operationNode() {}

// Pipeline is an ordered sequence of operations. Order defines evaluation
// semantics when nothing is pushed down.
type Pipeline []Operation

// NewPipeline creates a pipeline from operations.
func NewPipeline(ops ...Operation) Pipeline {
	return Pipeline(ops)
}

// Filter returns a new pipeline with a Filter appended.
func (p Pipeline) Filter(pred Predicate) Pipeline {
	return p.with(Filter{Predicate: pred})
}

// Sorted returns a new pipeline with a Sorted appended.
func (p Pipeline) Sorted(cmp Comparator) Pipeline {
	return p.with(Sorted{Comparator: cmp})
}

// Skip returns a new pipeline with a Skip appended.
func (p Pipeline) Skip(n int64) Pipeline {
	return p.with(Skip{N: n})
}

// Limit returns a new pipeline with a Limit appended.
func (p Pipeline) Limit(n int64) Pipeline {
	return p.with(Limit{N: n})
}

// Then returns a new pipeline with an Other appended.
func (p Pipeline) Then(name string, apply func([]Row) []Row) Pipeline {
	return p.with(Other{Name: name, Apply: apply})
}

func (p Pipeline) with(op Operation) Pipeline {
	out := make(Pipeline, 0, len(p)+1)
	out = append(out, p...)
	return append(out, op)
}

// Clone returns a copy of the pipeline that shares no backing array with p.
func (p Pipeline) Clone() Pipeline {
	if p == nil {
		return nil
	}
	out := make(Pipeline, len(p))
	copy(out, p)
	return out
}

// Validate checks structural constraints: no nil operations, no nil
// predicates or comparators, and non-negative Skip/Limit counts.
func (p Pipeline) Validate() error {
	for i, op := range p {
		switch o := op.(type) {
		case Filter:
			if o.Predicate == nil {
				return fmt.Errorf("operation %d: filter has nil predicate", i)
			}
		case Sorted:
			if o.Comparator == nil {
				return fmt.Errorf("operation %d: sorted has nil comparator", i)
			}
		case Skip:
			if o.N < 0 {
				return fmt.Errorf("operation %d: skip must be >= 0, got %d", i, o.N)
			}
		case Limit:
			if o.N < 0 {
				return fmt.Errorf("operation %d: limit must be >= 0, got %d", i, o.N)
			}
		case Other:
		case nil:
			return fmt.Errorf("operation %d: nil operation", i)
		default:
			return fmt.Errorf("operation %d: unsupported operation type %T", i, op)
		}
	}
	return nil
}

// Describe renders an operation in a compact, human-readable form.
func Describe(op Operation) string {
	switch o := op.(type) {
	case Filter:
		return "filter " + DescribePredicate(o.Predicate)
	case Sorted:
		return "sorted " + DescribeComparator(o.Comparator)
	case Skip:
		return fmt.Sprintf("skip %d", o.N)
	case Limit:
		return fmt.Sprintf("limit %d", o.N)
	case Other:
		if o.Name == "" {
			return "other"
		}
		return "other " + o.Name
	default:
		return fmt.Sprintf("%T", op)
	}
}

// String renders the pipeline as a list of described operations.
func (p Pipeline) String() string {
	parts := make([]string, len(p))
	for i, op := range p {
		parts[i] = Describe(op)
	}
	return "[" + strings.Join(parts, " | ") + "]"
}

// Row is the map-backed entity representation used by in-memory evaluation
// and by the reference store. Keys are field names.
type Row map[string]any

// Get returns the value of field f, or nil when absent.
func (r Row) Get(f Field) any {
	return r[f.Name]
}
