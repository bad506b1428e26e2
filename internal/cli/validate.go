package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results for JSON output.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Types  []string `json:"types,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a policy config without touching the snapshot",
		Long: `Validate a CUE policy config file.

Compiles the config and reports type policies found, without opening
or modifying the snapshot database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	settings, err := LoadConfig(configPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			// Not-found and read errors are command errors; compile
			// failures are validation failures.
			code := ExitFailure
			if loadErr.Code == ErrCodeNotFound {
				code = ExitCommandError
			}
			return NewExitError(code, loadErr.Error())
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	var types []string
	if settings.Policies != nil {
		types = settings.Policies.Types()
	}
	formatter.VerboseLog("Compiled %d type polic(ies)", len(types))

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Types: types})
	}

	fmt.Fprintln(formatter.Writer, "✓ Config valid")
	for _, tn := range types {
		fmt.Fprintf(formatter.Writer, "  %s\n", tn)
	}
	return nil
}
