package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gqlcache/internal/engine"
	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/selection"
)

// WriteOptions holds flags for the write command.
type WriteOptions struct {
	*RootOptions
	Vars     string
	Mutation bool
}

// writeReport is the JSON payload describing a completed write.
type writeReport struct {
	WriteToken string   `json:"write_token"`
	Seq        int64    `json:"seq"`
	Changed    []string `json:"changed,omitempty"`
}

// NewWriteCommand creates the write command.
func NewWriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "write <shape.json> <payload.json>",
		Short: "Normalize a response payload into the snapshot",
		Long: `Normalize a GraphQL response payload into the cache.

The shape file describes the selection the payload answers; the payload
file holds the response data. Entities are split out under their
identity keys and the snapshot is saved back in place.

Example:
  gqlcache write query.json response.json --vars '{"id":"1"}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Vars, "vars", "{}", "operation variables as JSON")
	cmd.Flags().BoolVar(&opts.Mutation, "mutation", false, "write under the mutation root")

	return cmd
}

func runWrite(opts *WriteOptions, shapePath, payloadPath string, cmd *cobra.Command) error {
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

	payload, err := loadObject(payloadPath)
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

	var change engine.ChangeSet
	if opts.Mutation {
		change, err = cache.WriteMutation(shape, payload, vars)
	} else {
		change, err = cache.Write(shape, payload, vars)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeCache, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	if err := saveCache(ctx, cache, file); err != nil {
		_ = formatter.Error(ErrCodeSnapshot, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	report := writeReport{
		WriteToken: change.WriteToken,
		Seq:        change.Seq,
		Changed:    change.Identities,
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Write %s (seq %d)\n", report.WriteToken, report.Seq)
	if len(report.Changed) == 0 {
		fmt.Fprintln(formatter.Writer, "  no records changed")
	}
	for _, id := range report.Changed {
		fmt.Fprintf(formatter.Writer, "  %s\n", id)
	}
	return nil
}

// loadShape reads and parses a selection shape file.
func loadShape(path string) (selection.Shape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shape: %w", err)
	}
	shape, err := selection.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing shape %s: %w", path, err)
	}
	return shape, nil
}

// loadObject reads a JSON file that must hold a top-level object.
func loadObject(path string) (ir.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	v, err := ir.DecodeValue(data)
	if err != nil {
		return nil, fmt.Errorf("parsing payload %s: %w", path, err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("payload %s: top level is %T, want object", path, v)
	}
	return obj, nil
}

// parseVars decodes the --vars flag value.
func parseVars(raw string) (ir.Object, error) {
	var anyVars map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &anyVars); err != nil {
		return nil, fmt.Errorf("invalid --vars JSON: %w", err)
	}
	vars := make(ir.Object, len(anyVars))
	for k, v := range anyVars {
		val, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --vars value %q: %w", k, err)
		}
		vars[k] = val
	}
	return vars, nil
}

// GetLoadErrorCode extracts the error code from a LoadError, falling
// back to the generic code.
func GetLoadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
