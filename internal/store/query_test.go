package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/pushdown"
	"github.com/roach88/pushdown/internal/stream"
	"github.com/roach88/pushdown/internal/testutil"
)

var (
	id     = testutil.PersonID
	name   = testutil.PersonName
	age    = testutil.PersonAge
	city   = testutil.PersonCity
	active = testutil.PersonActive
	born   = testutil.PersonBorn
	ref    = testutil.PersonRef
	code   = testutil.PersonCode
)

func reverseRows(rows []ir.Row) []ir.Row {
	out := make([]ir.Row, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}

// Pipelines used to check that pushdown plus in-memory evaluation of the
// remainder gives the same rows as evaluating everything in memory. Every
// sorted pipeline orders by a unique key so SQLite's order is determined.
var equivalencePipelines = map[string]ir.Pipeline{
	"filter sort page": ir.NewPipeline().
		Filter(ir.And(name.Equal("Bob"), age.GreaterOrEqual(18))).
		Sorted(age.Asc().NullsFirst()).
		Skip(0).
		Limit(5),
	"range and chain": ir.NewPipeline().
		Filter(age.Between(18, 40)).
		Sorted(ir.ChainOf(age.Desc(), id.Asc())).
		Limit(3),
	"nulls last with tie break": ir.NewPipeline().
		Sorted(age.Asc().NullsLast().ThenBy(id.Desc())),
	"desc nulls default": ir.NewPipeline().
		Sorted(ir.ChainOf(age.Desc(), id.Asc())),
	"reversed nulls first": ir.NewPipeline().
		Sorted(ir.ChainOf(age.Asc().NullsFirst().Reverse(), id.Asc())).
		Skip(2),
	"successive sorts": ir.NewPipeline().
		Sorted(id.Desc()).
		Sorted(age.Asc().NullsLast()),
	"sort by name with null": ir.NewPipeline().
		Sorted(name.Asc()),
	"starts with":              ir.NewPipeline().Filter(name.StartsWith("Gr")),
	"starts with is sensitive": ir.NewPipeline().Filter(name.StartsWith("f")),
	"ends with":                ir.NewPipeline().Filter(name.EndsWith("e")),
	"contains wildcards":       ir.NewPipeline().Filter(name.Contains("_50%")),
	"in":                       ir.NewPipeline().Filter(city.In("Bergen", "Tromsø")),
	"in empty":                 ir.NewPipeline().Filter(city.In()),
	"not in":                   ir.NewPipeline().Filter(city.NotIn("Oslo", "Bergen")),
	"not in empty":             ir.NewPipeline().Filter(city.NotIn()),
	"not equal":                ir.NewPipeline().Filter(age.NotEqual(18)),
	"not between exclusive":    ir.NewPipeline().Filter(age.NotBetweenWith(18, 34, ir.StartExclusiveEndExclusive)),
	"between exclusive end":    ir.NewPipeline().Filter(age.BetweenWith(18, 34, ir.StartInclusiveEndExclusive)),
	"ignore case":              ir.NewPipeline().Filter(name.EqualIgnoreCase("FRANK")),
	"not ignore case":          ir.NewPipeline().Filter(name.NotEqualIgnoreCase("alice")),
	"is empty":                 ir.NewPipeline().Filter(ir.Or(name.IsEmpty(), name.IsNull())),
	"is not empty":             ir.NewPipeline().Filter(name.IsNotEmpty()),
	"or with always true":      ir.NewPipeline().Filter(ir.Or(age.IsNull(), ir.AlwaysTrue())).Limit(4),
	"always false":             ir.NewPipeline().Filter(ir.AlwaysFalse()),
	"bool mapper":              ir.NewPipeline().Filter(active.Equal(true)).Sorted(born.Desc()).Skip(1).Limit(2),
	"time range": ir.NewPipeline().Filter(born.Between(
		time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2006, 6, 1, 0, 0, 0, 0, time.UTC))),
	"uuid": ir.NewPipeline().Filter(ref.GreaterThan(uuid.MustParse("00000000-0000-7000-8000-000000000005"))),
	"non-preserving range stays in memory": ir.NewPipeline().
		Filter(code.GreaterThan(9)).
		Limit(2),
	"non-preserving sort stays in memory": ir.NewPipeline().
		Filter(active.Equal(true)).
		Sorted(code.Asc()).
		Limit(3),
	"non-preserving equality is pushed": ir.NewPipeline().Filter(code.In(9, 100)),
	"halt on other": ir.NewPipeline().
		Filter(age.IsNotNull()).
		Then("reverse", reverseRows).
		Limit(2),
	"skip limit without sort": ir.NewPipeline().Skip(2).Limit(3),
	"opaque first": ir.NewPipeline().
		Filter(ir.Opaque{Name: "even id", Test: func(r ir.Row) bool { return r["id"].(int64)%2 == 0 }}).
		Sorted(id.Desc()).
		Limit(2),
	"limit after skip then filter": ir.NewPipeline().
		Skip(1).
		Limit(5).
		Filter(city.Equal("Oslo")),
}

func TestStream_MatchesInMemoryEvaluation(t *testing.T) {
	s := createTestStore(t)
	seedPersons(t, s)
	ctx := context.Background()

	for label, p := range equivalencePipelines {
		t.Run(label, func(t *testing.T) {
			want, err := stream.Apply(testutil.PersonRows(), p)
			require.NoError(t, err)

			got, err := s.Stream(ctx, personSource(), p)
			require.NoError(t, err, "sql: %s", got.Plan.Statement.SQL)

			assert.Equal(t, testutil.RowIDs(want), testutil.RowIDs(got.Rows), "sql: %s", got.Plan.Statement.SQL)
		})
	}
}

func TestStream_MapsStorageToDomain(t *testing.T) {
	s := createTestStore(t)
	seedPersons(t, s)

	res, err := s.Stream(context.Background(), personSource(), ir.NewPipeline().Filter(id.Equal(8)))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, "Grace_50%", row["name"])
	assert.Equal(t, false, row["active"])
	assert.Equal(t, uuid.MustParse("00000000-0000-7000-8000-000000000008"), row["ref"])
	assert.Equal(t, int64(1), row["code"])
	bornAt, ok := row["born"].(time.Time)
	require.True(t, ok, "born should map to time.Time, got %T", row["born"])
	assert.True(t, bornAt.Equal(time.Date(1963, time.October, 5, 0, 0, 0, 0, time.UTC)))
}

func TestStream_Plan(t *testing.T) {
	s := createTestStore(t)
	seedPersons(t, s)

	p := ir.NewPipeline().
		Filter(ir.And(name.Equal("Bob"), age.GreaterOrEqual(18))).
		Sorted(age.Asc().NullsFirst()).
		Skip(0).
		Limit(5)

	res, err := s.Stream(context.Background(), Source{Table: "person", Fields: []ir.Field{id, name, age}}, p)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "id", "name", "age" FROM "person" WHERE ("name" = ? AND "age" >= ?) ORDER BY "age" IS NOT NULL, "age" ASC LIMIT 5`,
		res.Plan.Statement.SQL)
	assert.Equal(t, []any{"Bob", 18}, res.Plan.Statement.Values)
	assert.Equal(t, pushdown.Metrics{Total: 4, FiltersHandled: 1, SortsHandled: 1, SkipHandled: 1, LimitHandled: 1}, res.Plan.Metrics)
	assert.Empty(t, res.Plan.Remaining)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, []int64{2}, testutil.RowIDs(res.Rows))
}

func TestStream_SelectStar(t *testing.T) {
	s := createTestStore(t)
	seedPersons(t, s)

	res, err := s.Stream(context.Background(), Source{Table: "person"}, ir.NewPipeline().Filter(id.LessThan(3)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Plan.Statement.SQL, `SELECT * FROM "person"`))
	require.Len(t, res.Rows, 2)
	// Without fields no mapper applies: storage values come back as stored.
	assert.Equal(t, int64(1), res.Rows[0]["active"])
	assert.Equal(t, "9", res.Rows[0]["code"])
}

func TestStream_Errors(t *testing.T) {
	s := createTestStore(t)
	seedPersons(t, s)
	ctx := context.Background()

	_, err := s.Stream(ctx, Source{}, nil)
	assert.Error(t, err)

	_, err = s.Stream(ctx, Source{Table: "missing"}, nil)
	assert.Error(t, err)

	_, err = s.Stream(ctx, personSource(), ir.NewPipeline().Limit(-1))
	assert.ErrorIs(t, err, pushdown.ErrInvalidArgument)

	_, err = s.Stream(ctx, personSource(), ir.NewPipeline().Filter(ir.Opaque{Name: "broken"}))
	assert.ErrorContains(t, err, "remaining pipeline")
}

func TestStream_QueryLog(t *testing.T) {
	s := createTestStore(t)
	seedPersons(t, s)
	ctx := context.Background()

	entries, err := s.QueryLog(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = s.Stream(ctx, personSource(), ir.NewPipeline().Filter(age.GreaterThan(30)).Then("noop", nil))
	require.NoError(t, err)
	_, err = s.Stream(ctx, personSource(), ir.NewPipeline().Filter(code.GreaterThan(9)))
	require.NoError(t, err)

	entries, err = s.QueryLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, int64(2), entries[1].Seq)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	assert.Equal(t, "person", entries[0].Source)
	assert.Equal(t, pushdown.StrategyPrefix, entries[0].Strategy)
	assert.Equal(t, 1, entries[0].Pushed)
	assert.Equal(t, 1, entries[0].Remaining)
	assert.Equal(t, 3, entries[0].Fetched)
	assert.Equal(t, 3, entries[0].Returned)

	assert.Equal(t, 0, entries[1].Pushed)
	assert.Equal(t, 8, entries[1].Fetched)
	assert.Equal(t, 4, entries[1].Returned)
}

func TestStream_PrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := createTestStore(t, WithMetrics(NewPrometheusMetrics(reg)))
	seedPersons(t, s)
	ctx := context.Background()

	_, err := s.Stream(ctx, personSource(), ir.NewPipeline().Filter(age.GreaterThan(30)).Sorted(id.Asc()).Limit(2))
	require.NoError(t, err)
	_, err = s.Stream(ctx, personSource(), ir.NewPipeline().Sorted(code.Asc()))
	require.NoError(t, err)

	assert.Equal(t, 2.0, metricValue(t, reg, "pushdown_statements_total", map[string]string{"source": "person", "strategy": "prefix"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "pushdown_operations_pushed_total", map[string]string{"source": "person", "kind": "filter"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "pushdown_operations_pushed_total", map[string]string{"source": "person", "kind": "limit"}))
	assert.Equal(t, 0.0, metricValue(t, reg, "pushdown_operations_pushed_total", map[string]string{"source": "person", "kind": "skip"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "pushdown_fallbacks_total", map[string]string{"source": "person"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "pushdown_remaining_operations", map[string]string{"source": "person"}))
	assert.Equal(t, 10.0, metricValue(t, reg, "pushdown_rows_fetched_total", map[string]string{"source": "person"}))
	assert.Equal(t, 10.0, metricValue(t, reg, "pushdown_rows_returned_total", map[string]string{"source": "person"}))
}

func TestPrometheusMetrics_CountsOnlyCompiledOperations(t *testing.T) {
	p := ir.NewPipeline().Filter(age.GreaterThan(30)).Skip(1).Limit(2)
	tests := []struct {
		name   string
		d      *dialect.Dialect
		filter float64
		skip   float64
		limit  float64
	}{
		{"full pagination", dialect.SQLite(), 1, 1, 1},
		{"no pagination keeps skip and limit in memory", dialect.ANSI(), 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := pushdown.NewPrefixOptimizer("SELECT * FROM person").Optimize(p, tt.d, &pushdown.StatementTarget{})
			require.NoError(t, err)

			reg := prometheus.NewRegistry()
			NewPrometheusMetrics(reg).ObservePlan("person", plan)

			kind := func(k string) map[string]string { return map[string]string{"source": "person", "kind": k} }
			assert.Equal(t, tt.filter, metricValue(t, reg, "pushdown_operations_pushed_total", kind("filter")))
			assert.Equal(t, tt.skip, metricValue(t, reg, "pushdown_operations_pushed_total", kind("skip")))
			assert.Equal(t, tt.limit, metricValue(t, reg, "pushdown_operations_pushed_total", kind("limit")))
			assert.Equal(t, 0.0, metricValue(t, reg, "pushdown_operations_pushed_total", kind("sorted")))
		})
	}
}

// metricValue returns the counter or gauge value of the series matching
// labels exactly.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			pairs := m.GetLabel()
			if len(pairs) != len(labels) {
				continue
			}
			match := true
			for _, lp := range pairs {
				if labels[lp.GetName()] != lp.GetValue() {
					match = false
				}
			}
			if !match {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}
