package stream

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/testutil"
)

var (
	id   = testutil.PersonID
	name = testutil.PersonName
	age  = testutil.PersonAge
	city = testutil.PersonCity
	code = testutil.PersonCode
)

func apply(t *testing.T, p ir.Pipeline) []int64 {
	t.Helper()
	rows, err := Apply(testutil.PersonRows(), p)
	require.NoError(t, err)
	return testutil.RowIDs(rows)
}

func TestApply_Filter(t *testing.T) {
	tests := []struct {
		name string
		pred ir.Predicate
		want []int64
	}{
		{"equal", name.Equal("Bob"), []int64{2}},
		{"equal int width", age.Equal(18), []int64{2, 5}},
		{"not equal skips nulls", age.NotEqual(18), []int64{1, 4, 6, 8}},
		{"less than", age.LessThan(30), []int64{2, 5, 6}},
		{"less or equal", age.LessOrEqual(27), []int64{2, 5, 6}},
		{"greater than", age.GreaterThan(50), []int64{4, 8}},
		{"greater or equal", age.GreaterOrEqual(52), []int64{4, 8}},
		{"between inclusive", age.Between(18, 34), []int64{1, 2, 5, 6}},
		{"between exclusive end", age.BetweenWith(18, 34, ir.StartInclusiveEndExclusive), []int64{2, 5, 6}},
		{"between exclusive start", age.BetweenWith(18, 34, ir.StartExclusiveEndInclusive), []int64{1, 6}},
		{"between exclusive", age.BetweenWith(18, 34, ir.StartExclusiveEndExclusive), []int64{6}},
		{"not between", age.NotBetween(18, 34), []int64{4, 8}},
		{"not between exclusive", age.NotBetweenWith(18, 34, ir.StartExclusiveEndExclusive), []int64{1, 2, 4, 5, 8}},
		{"in", city.In("Bergen", "Tromsø"), []int64{2, 7, 8}},
		{"in empty", city.In(), []int64{}},
		{"not in", city.NotIn("Oslo", "Bergen"), []int64{5, 8}},
		{"not in empty is not null", city.NotIn(), []int64{1, 2, 3, 5, 6, 7, 8}},
		{"not in with null operand", city.NotIn("Oslo", nil), []int64{}},
		{"is null", age.IsNull(), []int64{3, 7}},
		{"is not null", name.IsNotNull(), []int64{1, 2, 3, 5, 6, 7, 8}},
		{"starts with", name.StartsWith("Gr"), []int64{8}},
		{"starts with is case sensitive", name.StartsWith("f"), []int64{7}},
		{"ends with", name.EndsWith("e"), []int64{1, 5, 6}},
		{"contains wildcard literal", name.Contains("_50%"), []int64{8}},
		{"equal ignore case", name.EqualIgnoreCase("FRANK"), []int64{7}},
		{"not equal ignore case", name.NotEqualIgnoreCase("alice"), []int64{2, 3, 5, 6, 7, 8}},
		{"is empty", name.IsEmpty(), []int64{}},
		{"is not empty", name.IsNotEmpty(), []int64{1, 2, 3, 5, 6, 7, 8}},
		{"always true", ir.AlwaysTrue(), []int64{1, 2, 3, 4, 5, 6, 7, 8}},
		{"always false", ir.AlwaysFalse(), []int64{}},
		{"and", ir.And(city.Equal("Oslo"), age.IsNotNull()), []int64{1, 6}},
		{"or", ir.Or(age.IsNull(), name.Equal("Eve")), []int64{3, 6, 7}},
		{"empty and", ir.And(), []int64{1, 2, 3, 4, 5, 6, 7, 8}},
		{"empty or", ir.Or(), []int64{}},
		{"bool mapper domain value", testutil.PersonActive.Equal(false), []int64{3, 5, 8}},
		{"time domain value", testutil.PersonBorn.GreaterThan(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)), []int64{2, 5}},
		{"uuid domain value", testutil.PersonRef.Equal(uuid.MustParse("00000000-0000-7000-8000-000000000004")), []int64{4}},
		{"non-preserving field uses domain order", code.GreaterThan(9), []int64{2, 3, 5, 7}},
		{"opaque", ir.Opaque{Name: "even", Test: func(r ir.Row) bool { return r["id"].(int64)%2 == 0 }}, []int64{2, 4, 6, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apply(t, ir.NewPipeline().Filter(tt.pred)))
		})
	}
}

func TestApply_Sorted(t *testing.T) {
	tests := []struct {
		name string
		cmp  ir.Comparator
		want []int64
	}{
		{"asc nulls first by default", age.Asc(), []int64{3, 7, 2, 5, 6, 1, 4, 8}},
		{"desc nulls last by default", age.Desc(), []int64{8, 4, 1, 6, 2, 5, 3, 7}},
		{"asc nulls last", age.Asc().NullsLast(), []int64{2, 5, 6, 1, 4, 8, 3, 7}},
		{"reversed nulls first", age.Asc().NullsFirst().Reverse(), []int64{8, 4, 1, 6, 2, 5, 3, 7}},
		{"chain breaks ties", ir.ChainOf(age.Asc().NullsLast(), id.Desc()), []int64{5, 2, 6, 1, 4, 8, 7, 3}},
		{"non-preserving field uses domain order", code.Asc(), []int64{8, 4, 6, 1, 2, 5, 7, 3}},
		{"opaque", ir.OpaqueComparator{Name: "id desc", Compare: func(a, b ir.Row) int {
			return int(b["id"].(int64) - a["id"].(int64))
		}}, []int64{8, 7, 6, 5, 4, 3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apply(t, ir.NewPipeline().Sorted(tt.cmp)))
		})
	}
}

func TestApply_SuccessiveSortsAreStable(t *testing.T) {
	got := apply(t, ir.NewPipeline().Sorted(id.Desc()).Sorted(age.Asc().NullsLast()))
	assert.Equal(t, []int64{5, 2, 6, 1, 4, 8, 7, 3}, got)
}

func TestApply_SkipLimit(t *testing.T) {
	assert.Equal(t, []int64{3, 4, 5}, apply(t, ir.NewPipeline().Skip(2).Limit(3)))
	assert.Equal(t, []int64{}, apply(t, ir.NewPipeline().Skip(20)))
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, apply(t, ir.NewPipeline().Limit(100)))
	assert.Equal(t, []int64{}, apply(t, ir.NewPipeline().Limit(0)))
	assert.Equal(t, []int64{4, 5}, apply(t, ir.NewPipeline().Skip(1).Skip(2).Limit(5).Limit(2)))
}

func TestApply_Other(t *testing.T) {
	reverse := func(rows []ir.Row) []ir.Row {
		out := make([]ir.Row, len(rows))
		for i, r := range rows {
			out[len(rows)-1-i] = r
		}
		return out
	}
	got := apply(t, ir.NewPipeline().Limit(3).Then("reverse", reverse).Then("noop", nil))
	assert.Equal(t, []int64{3, 2, 1}, got)
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	rows := testutil.PersonRows()
	_, err := Apply(rows, ir.NewPipeline().Sorted(id.Desc()).Skip(3))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, testutil.RowIDs(rows))
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name string
		p    ir.Pipeline
		msg  string
	}{
		{"incomparable range", ir.NewPipeline().Filter(age.GreaterThan("x")), "not comparable"},
		{"pattern on number", ir.NewPipeline().Filter(age.StartsWith("1")), "non-text field age"},
		{"opaque without test", ir.NewPipeline().Filter(ir.Opaque{Name: "broken"}), `"broken" has no test function`},
		{"nil predicate", ir.NewPipeline().Filter(nil), "nil predicate"},
		{"nil comparator", ir.NewPipeline().Sorted(nil), "nil comparator"},
		{"negative skip", ir.NewPipeline().Skip(-1), "negative skip"},
		{"incomparable sort", ir.NewPipeline().Sorted(ir.NewField("mixed", nil).Asc()), "sort by mixed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := testutil.PersonRows()
			rows[0]["mixed"] = "text"
			rows[1]["mixed"] = int64(1)
			_, err := Apply(rows, tt.p)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.msg), err.Error())
		})
	}
}

func TestCompare(t *testing.T) {
	c, err := Compare(int32(3), int64(3))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = Compare(2.5, 3)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare("b", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare(false, true)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = Compare("1", 1)
	assert.True(t, errors.Is(err, ErrIncomparable))
	assert.False(t, Equal("1", 1))
}
