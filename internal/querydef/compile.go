package querydef

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
)

// Query is a compiled definition, ready for the optimizer or the store.
type Query struct {
	Name     string
	Table    string
	Dialect  *dialect.Dialect // nil when the definition names none
	Fields   []ir.Field
	Pipeline ir.Pipeline
}

// Compile resolves mapper, kind and dialect names and builds the pipeline.
// Operands are converted to the domain type of their field: RFC 3339 or
// YYYY-MM-DD strings for time_to_unix_millis, UUID strings for
// uuid_to_string.
func (d *Definition) Compile() (*Query, error) {
	if strings.TrimSpace(d.Table) == "" {
		return nil, invalid("table", "table is required")
	}
	q := &Query{Name: d.Name, Table: d.Table}
	if d.Dialect != "" {
		dl, err := dialect.Lookup(d.Dialect)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeUnknownRef, Path: "dialect", Message: err.Error()}
		}
		q.Dialect = dl
	}

	c := compiler{fields: make(map[string]fieldInfo, len(d.Fields))}
	for i, fd := range d.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		if fd.Name == "" {
			return nil, invalid(path, "name is required")
		}
		if _, dup := c.fields[fd.Name]; dup {
			return nil, invalid(path, "duplicate field %q", fd.Name)
		}
		m, err := ir.LookupMapper(fd.Mapper)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeUnknownRef, Path: path + ".mapper", Message: err.Error()}
		}
		f := ir.NewField(fd.Name, m)
		c.fields[fd.Name] = fieldInfo{field: f, mapper: fd.Mapper}
		q.Fields = append(q.Fields, f)
	}

	p := ir.NewPipeline()
	for i, step := range d.Pipeline {
		op, err := c.step(fmt.Sprintf("pipeline[%d]", i), step)
		if err != nil {
			return nil, err
		}
		p = append(p, op)
	}
	q.Pipeline = p
	return q, nil
}

type fieldInfo struct {
	field  ir.Field
	mapper string
}

type compiler struct {
	fields map[string]fieldInfo
}

func (c *compiler) lookup(path, name string) (fieldInfo, error) {
	if name == "" {
		return fieldInfo{}, invalid(path, "field is required")
	}
	fi, ok := c.fields[name]
	if !ok {
		return fieldInfo{}, &LoadError{Code: ErrCodeUnknownRef, Path: path, Message: fmt.Sprintf("unknown field %q", name)}
	}
	return fi, nil
}

func (c *compiler) step(path string, s StepDef) (ir.Operation, error) {
	set := 0
	for _, on := range []bool{s.Filter != nil, len(s.Sorted) > 0, s.Skip != nil, s.Limit != nil, s.Other != ""} {
		if on {
			set++
		}
	}
	if set != 1 {
		return nil, invalid(path, "exactly one of filter, sorted, skip, limit, other must be set")
	}

	switch {
	case s.Filter != nil:
		pred, err := c.predicate(path+".filter", *s.Filter)
		if err != nil {
			return nil, err
		}
		return ir.Filter{Predicate: pred}, nil
	case len(s.Sorted) > 0:
		return c.sorted(path+".sorted", s.Sorted)
	case s.Skip != nil:
		if *s.Skip < 0 {
			return nil, invalid(path+".skip", "must be >= 0, got %d", *s.Skip)
		}
		return ir.Skip{N: *s.Skip}, nil
	case s.Limit != nil:
		if *s.Limit < 0 {
			return nil, invalid(path+".limit", "must be >= 0, got %d", *s.Limit)
		}
		return ir.Limit{N: *s.Limit}, nil
	default:
		return c.other(s.Other), nil
	}
}

func (c *compiler) predicate(path string, p PredicateDef) (ir.Predicate, error) {
	combined := p.And != nil || p.Or != nil
	if combined && (p.Field != "" || p.Kind != "") {
		return nil, invalid(path, "and/or cannot be combined with field or kind")
	}
	if p.And != nil && p.Or != nil {
		return nil, invalid(path, "and and or are mutually exclusive")
	}
	if p.And != nil {
		children, err := c.children(path+".and", p.And)
		if err != nil {
			return nil, err
		}
		return ir.And(children...), nil
	}
	if p.Or != nil {
		children, err := c.children(path+".or", p.Or)
		if err != nil {
			return nil, err
		}
		return ir.Or(children...), nil
	}

	kind, err := ir.ParseKind(p.Kind)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeUnknownRef, Path: path + ".kind", Message: err.Error()}
	}
	if kind == ir.KindAlwaysTrue {
		return ir.AlwaysTrue(), nil
	}
	if kind == ir.KindAlwaysFalse {
		return ir.AlwaysFalse(), nil
	}

	fi, err := c.lookup(path+".field", p.Field)
	if err != nil {
		return nil, err
	}
	inclusion, err := ir.ParseInclusion(p.Inclusion)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeUnknownRef, Path: path + ".inclusion", Message: err.Error()}
	}

	var raw []any
	switch arity := kind.Arity(); arity {
	case 0:
		if p.Value != nil || len(p.Values) > 0 {
			return nil, invalid(path, "%s takes no operands", kind)
		}
	case 1:
		if len(p.Values) > 0 {
			return nil, invalid(path, "%s takes a single value", kind)
		}
		raw = []any{p.Value}
	case 2:
		if len(p.Values) != 2 {
			return nil, invalid(path+".values", "%s needs exactly two values, got %d", kind, len(p.Values))
		}
		raw = p.Values
	default:
		if p.Value != nil {
			return nil, invalid(path, "%s takes a values list", kind)
		}
		raw = p.Values
	}

	operands := make([]any, len(raw))
	for i, v := range raw {
		dv, err := domainValue(fi.mapper, v)
		if err != nil {
			return nil, invalid(path, "operand %d: %v", i, err)
		}
		operands[i] = dv
	}
	a := ir.Atomic{Field: fi.field, Kind: kind, Operands: operands}
	if kind == ir.KindBetween || kind == ir.KindNotBetween {
		a.Inclusion = inclusion
	}
	return a, nil
}

func (c *compiler) children(path string, defs []PredicateDef) ([]ir.Predicate, error) {
	out := make([]ir.Predicate, 0, len(defs))
	for i, d := range defs {
		p, err := c.predicate(fmt.Sprintf("%s[%d]", path, i), d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *compiler) sorted(path string, keys []SortKeyDef) (ir.Operation, error) {
	chain := ir.ChainOf()
	for i, k := range keys {
		kp := fmt.Sprintf("%s[%d]", path, i)
		fi, err := c.lookup(kp+".field", k.Field)
		if err != nil {
			return nil, err
		}
		nulls, err := ir.ParseNullOrder(k.Nulls)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeUnknownRef, Path: kp + ".nulls", Message: err.Error()}
		}
		chain = chain.ThenBy(ir.SortKey{Field: fi.field, Reversed: k.Reversed, Nulls: nulls})
	}
	if len(chain.Keys) == 1 {
		return ir.Sorted{Comparator: chain.Keys[0]}, nil
	}
	return ir.Sorted{Comparator: chain}, nil
}

func (c *compiler) other(name string) ir.Operation {
	switch name {
	case "distinct":
		return ir.Other{Name: name, Apply: distinct}
	case "reverse":
		return ir.Other{Name: name, Apply: reverse}
	default:
		return ir.Other{Name: name}
	}
}

// distinct keeps the first occurrence of each row.
func distinct(rows []ir.Row) []ir.Row {
	seen := make(map[string]bool, len(rows))
	out := make([]ir.Row, 0, len(rows))
	for _, r := range rows {
		names := make([]string, 0, len(r))
		for n := range r {
			names = append(names, n)
		}
		sort.Strings(names)
		var b strings.Builder
		for _, n := range names {
			fmt.Fprintf(&b, "%s=%#v;", n, r[n])
		}
		key := b.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func reverse(rows []ir.Row) []ir.Row {
	out := make([]ir.Row, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}

// domainValue converts a decoded literal to the domain type expected by the
// named mapper. Whole numbers are normalized to int64.
func domainValue(mapper string, v any) (any, error) {
	v = normalizeNumber(v)
	if v == nil {
		return nil, nil
	}
	switch mapper {
	case "time_to_unix_millis":
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case int64:
			return time.UnixMilli(t).UTC(), nil
		case string:
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed.UTC(), nil
				}
			}
			return nil, fmt.Errorf("invalid time %q", t)
		}
		return nil, fmt.Errorf("expected a time, got %T", v)
	case "uuid_to_string":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a UUID string, got %T", v)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID %q: %w", s, err)
		}
		return id, nil
	case "bool_to_int":
		if b, ok := v.(bool); ok {
			return b, nil
		}
		if n, ok := v.(int64); ok && (n == 0 || n == 1) {
			return n == 1, nil
		}
		return nil, fmt.Errorf("expected a bool, got %v", v)
	}
	return v, nil
}

func normalizeNumber(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
	}
	return v
}
