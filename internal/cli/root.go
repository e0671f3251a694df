package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/pushdown/internal/dialect"
)

// EnvPrefix prefixes the environment variables bound to global flags,
// e.g. PUSHDOWN_FORMAT=json.
const EnvPrefix = "PUSHDOWN"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Dialect string // overrides the definition's dialect when set

	// TraceIDs generates the trace id of JSON responses. If nil,
	// defaults to UUIDv7Generator.
	TraceIDs TraceIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the pushdown CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pushdown",
		Short: "pushdown - SQL pushdown for entity pipelines",
		Long: `pushdown compiles the leading filter, sort, skip and limit steps of an
entity pipeline into one SQL statement and evaluates the rest in memory.

Global flags can also be set through environment variables prefixed with
"PUSHDOWN_", e.g. PUSHDOWN_FORMAT=json. Flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.bind(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Dialect, "dialect", "",
		fmt.Sprintf("SQL dialect, overrides the definition (%s)", strings.Join(dialect.Names(), "|")))

	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDialectsCommand(opts))

	return cmd
}

// bind resolves global flags against PUSHDOWN_* environment variables and
// validates them.
func (o *RootOptions) bind(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return WrapExitError(ExitCommandError, "binding flags", err)
	}

	o.Verbose = v.GetBool("verbose")
	o.Format = v.GetString("format")
	o.Dialect = v.GetString("dialect")

	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	if o.Dialect != "" {
		if _, err := dialect.Lookup(o.Dialect); err != nil {
			return WrapExitError(ExitCommandError, "invalid --dialect", err)
		}
	}
	return nil
}

// logger returns a text logger on w, at debug level in verbose mode.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	gen := o.TraceIDs
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		TraceIDs:  gen,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
