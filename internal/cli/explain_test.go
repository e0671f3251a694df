package cli

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/querydef"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestExplain_Golden(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"explain_people_text", []string{"explain", "testdata/people.yaml"}},
		{"explain_codes_sqlserver_text", []string{"--dialect", "sqlserver", "explain", "testdata/codes.yaml"}},
		{"explain_people_postgres_json", []string{"--format", "json", "--dialect", "postgres", "explain", "testdata/people.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			require.NoError(t, err)
			newGolden(t).Assert(t, tt.name, []byte(stdout))
		})
	}
}

func TestExplain_JSONIsValid(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "explain", "testdata/codes.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExplainResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sqlite", resp.Data.Dialect)
	assert.Equal(t, "prefix", resp.Data.Strategy)
	assert.Equal(t, 1, resp.Data.Metrics.FiltersHandled)
	assert.Equal(t, []string{"filter code LESS_THAN [3]", "limit 2"}, resp.Data.Remaining)
}

func TestExplain_DefinitionErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", "testdata/missing.yaml", "Error [Q001]: definition not found: testdata/missing.yaml"},
		{"unknown field", "testdata/broken.yaml", "Error [Q006]: pipeline[0].filter.field: unknown field \"age\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "explain", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.True(t, IsReported(err))
			assert.Equal(t, tt.want+"\n", stdout)
		})
	}
}

func TestExplain_DefinitionErrorJSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "explain", "testdata/broken.yaml")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, querydef.ErrCodeUnknownRef, resp.Error.Code)
	assert.Equal(t, "trace-1", resp.TraceID)
}

func TestExplain_VerboseLogsToStderr(t *testing.T) {
	stdout, stderr, err := execute(t, "--verbose", "--format", "json", "explain", "testdata/people.yaml")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Loaded testdata/people.yaml: 6 field(s), 5 operation(s), dialect sqlite")
	assert.Contains(t, stderr, "pushdown applied")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout must stay valid JSON")
}

func TestExplain_SelectStarWithoutFields(t *testing.T) {
	q := &querydef.Query{
		Table:    "person",
		Pipeline: ir.NewPipeline().Limit(3),
	}
	res, err := explain(q, dialect.SQLite(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "person" LIMIT 3`, res.SQL)
	assert.Equal(t, []any{}, res.Values)
	assert.Empty(t, res.Remaining)
	assert.Equal(t, []string{"limit 3"}, res.Pushed)
}

func TestResolveDialect(t *testing.T) {
	withDialect := &querydef.Query{Dialect: dialect.MySQL()}
	without := &querydef.Query{}

	d, err := resolveDialect("postgres", withDialect)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name)

	d, err = resolveDialect("", withDialect)
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name)

	d, err = resolveDialect("", without)
	require.NoError(t, err)
	assert.Equal(t, DefaultDialect, d.Name)

	_, err = resolveDialect("oracle", without)
	assert.Error(t, err)
}
