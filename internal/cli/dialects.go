package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/pushdown/internal/dialect"
)

// DialectInfo describes the capabilities of one dialect.
type DialectInfo struct {
	Name        string `json:"name"`
	Pagination  string `json:"pagination"`
	NullOrder   string `json:"null_order"`
	Placeholder string `json:"placeholder"`
	Quoted      string `json:"quoted"`
}

// DialectList is the payload of the dialects command.
type DialectList []DialectInfo

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "dialects",
		Short:         "List the supported SQL dialects and their capabilities",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := listDialects()
			if err != nil {
				return rootOpts.formatter(cmd).Fail(ExitCommandError, ErrCodeDialect, "listing dialects", err)
			}
			return rootOpts.formatter(cmd).Success(list)
		},
	}
}

func listDialects() (DialectList, error) {
	var out DialectList
	for _, name := range dialect.Names() {
		d, err := dialect.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, DialectInfo{
			Name:        d.Name,
			Pagination:  string(d.Pagination),
			NullOrder:   string(d.NullOrder),
			Placeholder: d.PlaceholderFor(1),
			Quoted:      d.Quote("column"),
		})
	}
	return out, nil
}

// RenderText implements TextRenderer.
func (l DialectList) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPAGINATION\tNULL ORDER\tPLACEHOLDER\tQUOTED")
	for _, d := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Pagination, d.NullOrder, d.Placeholder, d.Quoted)
	}
	return tw.Flush()
}
