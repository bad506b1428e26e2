package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gqlcache/internal/engine"
	"github.com/roach88/gqlcache/internal/ir"
)

// ReadOptions holds flags for the read command.
type ReadOptions struct {
	*RootOptions
	Vars string
	From string
}

// readReport is the JSON payload describing a cache read.
type readReport struct {
	Complete bool                  `json:"complete"`
	Data     json.RawMessage       `json:"data"`
	Missing  []engine.MissingField `json:"missing,omitempty"`
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read <shape.json>",
		Short: "Denormalize a selection out of the snapshot",
		Long: `Read a selection shape out of the cache.

Follows references through the store and rebuilds the response tree the
shape describes. An incomplete read prints whatever resolved plus the
missing field paths, and exits nonzero.

Example:
  gqlcache read query.json --vars '{"id":"1"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Vars, "vars", "{}", "operation variables as JSON")
	cmd.Flags().StringVar(&opts.From, "from", "", "root identity to read from (default query root)")

	return cmd
}

func runRead(opts *ReadOptions, shapePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	shape, err := loadShape(shapePath)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	vars, err := parseVars(opts.Vars)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	cache, file, err := openCache(ctx, opts.RootOptions, formatter)
	if err != nil {
		_ = formatter.Error(GetLoadErrorCode(err), err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer file.Close()

	var result engine.Result
	if opts.From != "" {
		result, err = cache.ReadFrom(opts.From, shape, vars)
	} else {
		result, err = cache.Read(shape, vars)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeCache, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	data, err := ir.MarshalCanonical(result.Data)
	if err != nil {
		_ = formatter.Error(ErrCodeCache, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	if formatter.Format == "json" {
		report := readReport{
			Complete: result.Complete,
			Data:     json.RawMessage(data),
			Missing:  result.Missing,
		}
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		if result.Complete {
			fmt.Fprintln(formatter.Writer, "✓ Complete")
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Incomplete")
			for _, m := range result.Missing {
				fmt.Fprintf(formatter.Writer, "  %s (%s): %s\n", m.Path, m.Identity, m.Reason)
			}
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}

	if !result.Complete {
		return NewExitError(ExitFailure, fmt.Sprintf("read incomplete: %d missing field(s)", len(result.Missing)))
	}
	return nil
}
