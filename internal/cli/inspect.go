package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gqlcache/internal/ir"
)

// inspectReport is the JSON payload for a whole-snapshot listing.
type inspectReport struct {
	Records    int      `json:"records"`
	SavedAt    string   `json:"saved_at,omitempty"`
	Identities []string `json:"identities"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [identity]",
		Short: "Show snapshot contents",
		Long: `Show what the snapshot holds.

Without arguments, lists every record identity. With an identity,
prints that record as canonical JSON.

Example:
  gqlcache inspect Book:1`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := ""
			if len(args) == 1 {
				identity = args[0]
			}
			return runInspect(rootOpts, identity, cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, identity string, cmd *cobra.Command) error {
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

	s := cache.Store()

	if identity != "" {
		rec, ok := s.Get(identity)
		if !ok {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no record for %q", identity), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("no record for %q", identity))
		}
		data, err := ir.MarshalCanonical(ir.Object(rec))
		if err != nil {
			_ = formatter.Error(ErrCodeCache, err.Error(), nil)
			return NewExitError(ExitFailure, err.Error())
		}
		if formatter.Format == "json" {
			return formatter.Success(json.RawMessage(data))
		}
		fmt.Fprintln(formatter.Writer, string(data))
		return nil
	}

	savedAt, err := file.SavedAt(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeSnapshot, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	report := inspectReport{
		Records:    s.Len(),
		SavedAt:    savedAt,
		Identities: s.Identities(),
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "%d record(s)", report.Records)
	if report.SavedAt != "" {
		fmt.Fprintf(formatter.Writer, ", saved %s", report.SavedAt)
	}
	fmt.Fprintln(formatter.Writer)
	for _, id := range report.Identities {
		fmt.Fprintf(formatter.Writer, "  %s\n", id)
	}
	return nil
}
