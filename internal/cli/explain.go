package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/pushdown"
	"github.com/roach88/pushdown/internal/querydef"
	"github.com/roach88/pushdown/internal/querysql"
)

// DefaultDialect is used when neither --dialect nor the definition names one.
const DefaultDialect = "sqlite"

// ExplainResult is the payload of the explain command.
type ExplainResult struct {
	Query      string           `json:"query,omitempty"`
	Table      string           `json:"table"`
	Dialect    string           `json:"dialect"`
	Strategy   string           `json:"strategy"`
	Shape      string           `json:"shape"`
	SQL        string           `json:"sql"`
	Values     []any            `json:"values"`
	Metrics    pushdown.Metrics `json:"metrics"`
	Pushed     []string         `json:"pushed"`
	Remaining  []string         `json:"remaining"`
	Candidates []Candidate      `json:"candidates"`
}

// Candidate is one ranked strategy.
type Candidate struct {
	Strategy string           `json:"strategy"`
	Metrics  pushdown.Metrics `json:"metrics"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <definition>",
		Short: "Show the SQL a query definition pushes down",
		Long: `Load a query definition (YAML or CUE), rank the pushdown strategies for
the chosen dialect and print the statement, its bind values, the metrics
and the operations left for in-memory evaluation.

Example:
  pushdown explain ./queries/oslo.yaml
  pushdown explain --dialect postgres --format json ./queries/oslo.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, args[0], cmd)
		},
	}
}

func runExplain(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(formatter.GetErrWriter())

	q, err := loadQuery(path)
	if err != nil {
		return formatter.FailLoad(err)
	}
	d, err := resolveDialect(opts.Dialect, q)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDialect, "resolving dialect", err)
	}
	formatter.VerboseLog("Loaded %s: %d field(s), %d operation(s), dialect %s",
		path, len(q.Fields), len(q.Pipeline), d.Name)

	result, err := explain(q, d, logger)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeOptimize, "optimizing pipeline", err)
	}
	return formatter.Success(result)
}

// explain ranks the default strategies for q and applies the best one.
func explain(q *querydef.Query, d *dialect.Dialect, logger *slog.Logger) (*ExplainResult, error) {
	columns := querysql.QuotedColumns(d)
	base := querysql.BaseSelect(d.Quote(q.Table), q.Fields, columns)
	sel := pushdown.DefaultSelector(base,
		pushdown.WithColumnNamer(columns),
		pushdown.WithLogger(logger),
	)

	var target pushdown.StatementTarget
	res, err := sel.Optimize(q.Pipeline, d, &target)
	if err != nil {
		return nil, err
	}

	out := &ExplainResult{
		Query:     q.Name,
		Table:     q.Table,
		Dialect:   d.Name,
		Strategy:  res.Strategy,
		Shape:     res.Shape,
		SQL:       target.SQL,
		Values:    target.Values,
		Metrics:   res.Metrics,
		Pushed:    describeAll(res.Pushed),
		Remaining: describeAll(res.Remaining),
	}
	for _, r := range sel.Rank(q.Pipeline, d) {
		out.Candidates = append(out.Candidates, Candidate{Strategy: r.Strategy.Name(), Metrics: r.Metrics})
	}
	return out, nil
}

// RenderText implements TextRenderer.
func (r *ExplainResult) RenderText(w io.Writer) error {
	values, err := json.Marshal(r.Values)
	if err != nil {
		return fmt.Errorf("encoding values: %w", err)
	}
	if r.Query != "" {
		fmt.Fprintf(w, "Query:     %s\n", r.Query)
	}
	fmt.Fprintf(w, "Table:     %s\n", r.Table)
	fmt.Fprintf(w, "Dialect:   %s\n", r.Dialect)
	fmt.Fprintf(w, "Strategy:  %s (%s)\n", r.Strategy, r.Shape)
	fmt.Fprintf(w, "SQL:       %s\n", r.SQL)
	fmt.Fprintf(w, "Values:    %s\n", values)
	fmt.Fprintf(w, "Metrics:   %s\n", r.Metrics)
	writeList(w, "Pushed", r.Pushed)
	writeList(w, "Remaining", r.Remaining)
	fmt.Fprintln(w, "Candidates:")
	for _, c := range r.Candidates {
		fmt.Fprintf(w, "  %-8s %s\n", c.Strategy, c.Metrics)
	}
	return nil
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "%s: (none)\n", title)
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  %s\n", it)
	}
}

func describeAll(p ir.Pipeline) []string {
	out := make([]string, len(p))
	for i, op := range p {
		out[i] = ir.Describe(op)
	}
	return out
}

func loadQuery(path string) (*querydef.Query, error) {
	def, err := querydef.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return def.Compile()
}

// resolveDialect picks the --dialect override, then the definition's
// dialect, then DefaultDialect.
func resolveDialect(override string, q *querydef.Query) (*dialect.Dialect, error) {
	if override != "" {
		return dialect.Lookup(override)
	}
	if q.Dialect != nil {
		return q.Dialect, nil
	}
	return dialect.Lookup(DefaultDialect)
}
