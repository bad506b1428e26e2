package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// resetReport is the JSON payload describing a cache reset.
type resetReport struct {
	Invalidated []string `json:"invalidated,omitempty"`
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the snapshot",
		Long: `Clear every record from the cache and save the empty snapshot.

Prints the identities the reset invalidated.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(rootOpts, cmd)
		},
	}

	return cmd
}

func runReset(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	cache, file, err := openCache(ctx, opts, formatter)
	if err != nil {
		_ = formatter.Error(GetLoadErrorCode(err), err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer file.Close()

	invalidated := cache.Reset()

	if err := saveCache(ctx, cache, file); err != nil {
		_ = formatter.Error(ErrCodeSnapshot, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(resetReport{Invalidated: invalidated})
	}

	fmt.Fprintf(formatter.Writer, "✓ Reset: %d record(s) invalidated\n", len(invalidated))
	for _, id := range invalidated {
		fmt.Fprintf(formatter.Writer, "  %s\n", id)
	}
	return nil
}
