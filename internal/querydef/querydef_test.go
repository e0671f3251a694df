package querydef

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pushdown/internal/ir"
)

const peoplePipeline = "[filter (city EQUAL [Oslo] AND age BETWEEN [18 65] AND born GREATER_THAN [1980-01-01 00:00:00 +0000 UTC]) " +
	"| sorted age asc nulls first, name desc | skip 1 | limit 5 | other distinct]"

func compileFile(t *testing.T, path string) *Query {
	t.Helper()
	def, err := LoadFile(path)
	require.NoError(t, err)
	q, err := def.Compile()
	require.NoError(t, err)
	return q
}

func TestLoadFile_YAMLAndCUEAgree(t *testing.T) {
	for _, file := range []string{"people.yaml", "people.cue"} {
		t.Run(file, func(t *testing.T) {
			q := compileFile(t, filepath.Join("testdata", file))

			assert.Equal(t, "oslo_adults", q.Name)
			assert.Equal(t, "person", q.Table)
			require.NotNil(t, q.Dialect)
			assert.Equal(t, "sqlite", q.Dialect.Name)

			require.Len(t, q.Fields, 6)
			assert.Equal(t, "born", q.Fields[4].Name)
			assert.Equal(t, ir.TimeToUnixMillis, q.Fields[4].Mapper)
			assert.False(t, q.Fields[5].OrderingPreserving())

			assert.Equal(t, peoplePipeline, q.Pipeline.String())
			require.NoError(t, q.Pipeline.Validate())

			between := q.Pipeline[0].(ir.Filter).Predicate.(ir.Combined).Children[1].(ir.Atomic)
			assert.Equal(t, ir.StartInclusiveEndExclusive, between.Inclusion)
			assert.Equal(t, []any{int64(18), int64(65)}, between.Operands)
		})
	}
}

func TestLoadFile_CUEPackage(t *testing.T) {
	q := compileFile(t, filepath.Join("testdata", "pkg"))

	assert.Equal(t, "by_code", q.Name)
	assert.Nil(t, q.Dialect)
	assert.Equal(t, "[filter code IN [1 2 3] | limit 2]", q.Pipeline.String())
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing", "testdata/nope.yaml", ErrCodeNotFound},
		{"unknown key", "testdata/typo.yaml", ErrCodeParse},
		{"non-concrete cue", "testdata/incomplete.cue", ErrCodeBuildFailed},
		{"format", "testdata/pkg/../../doc.go", ErrCodeFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.code, Code(err))
		})
	}
}

func TestLoadCUE_SyntaxErrorHasPosition(t *testing.T) {
	_, err := LoadCUE("bad.cue", []byte("table: \"person\"\nfields: [\n"))
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeBuildFailed, le.Code)
	assert.True(t, le.Pos.IsValid())
	assert.Contains(t, le.Error(), "bad.cue:")
}

func TestCompile_OperandConversion(t *testing.T) {
	def, err := LoadYAML([]byte(`
table: person
fields:
  - {name: active, mapper: bool_to_int}
  - {name: born, mapper: time_to_unix_millis}
  - {name: ref, mapper: uuid_to_string}
pipeline:
  - filter:
      or:
        - {field: active, kind: equal, value: 1}
        - {field: born, kind: less_than, value: "1990-03-01T12:30:00Z"}
        - {field: ref, kind: in, values: ["00000000-0000-7000-8000-000000000001"]}
        - {field: born, kind: is_null}
`))
	require.NoError(t, err)
	q, err := def.Compile()
	require.NoError(t, err)

	children := q.Pipeline[0].(ir.Filter).Predicate.(ir.Combined).Children
	require.Len(t, children, 4)
	assert.Equal(t, []any{true}, children[0].(ir.Atomic).Operands)
	assert.Equal(t, []any{time.Date(1990, 3, 1, 12, 30, 0, 0, time.UTC)}, children[1].(ir.Atomic).Operands)
	assert.Equal(t, []any{uuid.MustParse("00000000-0000-7000-8000-000000000001")}, children[2].(ir.Atomic).Operands)
	assert.Empty(t, children[3].(ir.Atomic).Operands)
}

func TestCompile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code string
		path string
	}{
		{
			name: "no table",
			yaml: "fields: [{name: id}]",
			code: ErrCodeInvalid, path: "table",
		},
		{
			name: "unknown dialect",
			yaml: "table: t\ndialect: oracle",
			code: ErrCodeUnknownRef, path: "dialect",
		},
		{
			name: "unknown mapper",
			yaml: "table: t\nfields: [{name: id, mapper: rot13}]",
			code: ErrCodeUnknownRef, path: "fields[0].mapper",
		},
		{
			name: "duplicate field",
			yaml: "table: t\nfields: [{name: id}, {name: id}]",
			code: ErrCodeInvalid, path: "fields[1]",
		},
		{
			name: "two members in one step",
			yaml: "table: t\npipeline: [{skip: 1, limit: 2}]",
			code: ErrCodeInvalid, path: "pipeline[0]",
		},
		{
			name: "empty step",
			yaml: "table: t\npipeline: [{}]",
			code: ErrCodeInvalid, path: "pipeline[0]",
		},
		{
			name: "negative limit",
			yaml: "table: t\npipeline: [{limit: -1}]",
			code: ErrCodeInvalid, path: "pipeline[0].limit",
		},
		{
			name: "unknown field",
			yaml: "table: t\nfields: [{name: id}]\npipeline: [{filter: {field: age, kind: equal, value: 1}}]",
			code: ErrCodeUnknownRef, path: "pipeline[0].filter.field",
		},
		{
			name: "unknown kind",
			yaml: "table: t\nfields: [{name: id}]\npipeline: [{filter: {field: id, kind: like, value: 1}}]",
			code: ErrCodeUnknownRef, path: "pipeline[0].filter.kind",
		},
		{
			name: "between arity",
			yaml: "table: t\nfields: [{name: id}]\npipeline: [{filter: {field: id, kind: between, values: [1]}}]",
			code: ErrCodeInvalid, path: "pipeline[0].filter.values",
		},
		{
			name: "nested error path",
			yaml: "table: t\nfields: [{name: id}]\npipeline: [{filter: {and: [{field: id, kind: is_null}, {or: [{field: x, kind: is_null}]}]}}]",
			code: ErrCodeUnknownRef, path: "pipeline[0].filter.and[1].or[0].field",
		},
		{
			name: "mixed combination",
			yaml: "table: t\nfields: [{name: id}]\npipeline: [{filter: {field: id, and: []}}]",
			code: ErrCodeInvalid, path: "pipeline[0].filter",
		},
		{
			name: "bad null order",
			yaml: "table: t\nfields: [{name: id}]\npipeline: [{sorted: [{field: id, nulls: middle}]}]",
			code: ErrCodeUnknownRef, path: "pipeline[0].sorted[0].nulls",
		},
		{
			name: "bad time operand",
			yaml: "table: t\nfields: [{name: born, mapper: time_to_unix_millis}]\npipeline: [{filter: {field: born, kind: equal, value: yesterday}}]",
			code: ErrCodeInvalid, path: "pipeline[0].filter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := LoadYAML([]byte(tt.yaml))
			require.NoError(t, err)

			_, err = def.Compile()
			require.Error(t, err)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.code, le.Code)
			assert.Equal(t, tt.path, le.Path)
		})
	}
}

func TestCompile_ConstantPredicatesAndOthers(t *testing.T) {
	def, err := LoadYAML([]byte(`
table: t
fields: [{name: id}]
pipeline:
  - filter: {kind: always_true}
  - filter: {and: []}
  - other: reverse
  - other: peek
`))
	require.NoError(t, err)
	q, err := def.Compile()
	require.NoError(t, err)

	assert.Equal(t, "[filter ALWAYS_TRUE | filter () | other reverse | other peek]", q.Pipeline.String())

	rows := []ir.Row{{"id": int64(1)}, {"id": int64(2)}}
	reversed := q.Pipeline[2].(ir.Other).Apply(rows)
	assert.Equal(t, []ir.Row{{"id": int64(2)}, {"id": int64(1)}}, reversed)
	assert.Nil(t, q.Pipeline[3].(ir.Other).Apply)
}

func TestDistinct(t *testing.T) {
	rows := []ir.Row{
		{"id": int64(1), "city": "Oslo"},
		{"id": int64(1), "city": "Oslo"},
		{"id": int64(1), "city": nil},
		{"city": "Oslo", "id": int64(1)},
	}
	out := distinct(rows)
	assert.Equal(t, []ir.Row{rows[0], rows[2]}, out)
}
