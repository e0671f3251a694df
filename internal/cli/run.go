package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/pushdown/internal/ir"
	"github.com/roach88/pushdown/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Metrics  bool
}

// RunResult is the payload of the run command.
type RunResult struct {
	Query     string   `json:"query,omitempty"`
	Table     string   `json:"table"`
	Strategy  string   `json:"strategy"`
	SQL       string   `json:"sql"`
	Fetched   int      `json:"fetched"`
	Returned  int      `json:"returned"`
	Remaining []string `json:"remaining"`
	Columns   []string `json:"columns"`
	Rows      []ir.Row `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <definition>",
		Short: "Execute a query definition against a SQLite database",
		Long: `Execute a query definition against a SQLite database.

The pushable prefix of the pipeline runs as SQL; the remaining operations
run in memory over the fetched rows. Every statement is recorded in the
database's query_log table.

Example:
  pushdown run --db ./people.db ./queries/oslo.yaml
  pushdown run --db ./people.db --metrics --format json ./queries/oslo.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print execution metrics to stderr")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(opts *RunOptions, path string, cmd *cobra.Command) error {
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

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "database not found", err)
	}

	registry := prometheus.NewRegistry()
	st, err := store.Open(opts.Database,
		store.WithLogger(logger),
		store.WithMetrics(store.NewPrometheusMetrics(registry)),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "opening database", err)
	}
	defer st.Close()

	if d.Name != st.Dialect().Name {
		return formatter.Fail(ExitCommandError, ErrCodeDialect,
			fmt.Sprintf("run executes against %s, not %s", st.Dialect().Name, d.Name), nil)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := st.Stream(ctx, store.Source{Table: q.Table, Fields: q.Fields}, q.Pipeline)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeExecute, "executing query", err)
	}
	formatter.VerboseLog("Executed %s: fetched %d row(s), returned %d", res.Plan.Strategy, res.Fetched, len(res.Rows))

	if opts.Metrics {
		if err := writeMetrics(formatter.GetErrWriter(), registry); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeExecute, "gathering metrics", err)
		}
	}

	return formatter.Success(&RunResult{
		Query:     q.Name,
		Table:     q.Table,
		Strategy:  res.Plan.Strategy,
		SQL:       res.Plan.Statement.SQL,
		Fetched:   res.Fetched,
		Returned:  len(res.Rows),
		Remaining: describeAll(res.Plan.Remaining),
		Columns:   columnsOf(q.Fields, res.Rows),
		Rows:      res.Rows,
	})
}

// RenderText implements TextRenderer.
func (r *RunResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Strategy:  %s\n", r.Strategy)
	fmt.Fprintf(w, "SQL:       %s\n", r.SQL)
	fmt.Fprintf(w, "Rows:      %d fetched, %d returned\n\n", r.Fetched, r.Returned)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Columns, "\t"))
	for _, row := range r.Rows {
		cells := make([]string, len(r.Columns))
		for i, col := range r.Columns {
			cells[i] = formatCell(row[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// columnsOf returns the declared field names, or the sorted keys of the
// first row when the definition selects every column.
func columnsOf(fields []ir.Field, rows []ir.Row) []string {
	if len(fields) > 0 {
		cols := make([]string, len(fields))
		for i, f := range fields {
			cols[i] = f.Name
		}
		return cols
	}
	cols := []string{}
	if len(rows) > 0 {
		for k := range rows[0] {
			cols = append(cols, k)
		}
		sort.Strings(cols)
	}
	return cols
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

// writeMetrics prints counters and gauges as "name{labels} value".
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			value := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
