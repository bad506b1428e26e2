package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gqlcache/internal/policy"
	"github.com/roach88/gqlcache/internal/store"
)

// Settings is the compiled cache configuration.
type Settings struct {
	// Policies carries the declarative per-type and per-field policy
	// configuration. Go-side read/merge functions register on top of
	// it after compilation.
	Policies *policy.Config

	// Conflict is the store's default merge-conflict outcome.
	Conflict store.ConflictPolicy
}

// CompileConfig parses a CUE value into Settings.
//
// The CUE value should be the struct under the "cache" label:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	settings, err := CompileConfig(v.LookupPath(cue.ParsePath("cache")))
func CompileConfig(v cue.Value) (*Settings, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.Exists() {
		return nil, &CompileError{
			Field:   "cache",
			Message: "cache configuration is required",
		}
	}

	settings := &Settings{
		Policies: policy.NewConfig(),
		Conflict: store.ConflictOverwrite,
	}

	// Parse conflict policy (optional).
	conflictVal := v.LookupPath(cue.ParsePath("conflict"))
	if conflictVal.Exists() {
		s, err := conflictVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		switch s {
		case "", "overwrite":
			settings.Conflict = store.ConflictOverwrite
		case "keep":
			settings.Conflict = store.ConflictKeepExisting
		default:
			return nil, &CompileError{
				Field:   "conflict",
				Message: fmt.Sprintf("must be %q or %q, got %q", "overwrite", "keep", s),
				Pos:     conflictVal.Pos(),
			}
		}
	}

	// Parse types (optional, can be empty).
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if typesVal.Exists() {
		iter, err := typesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			typename := strings.Trim(iter.Selector().String(), `"`)
			tp, err := compileType(iter.Value())
			if err != nil {
				return nil, err
			}
			if err := settings.Policies.RegisterType(typename, tp); err != nil {
				return nil, &CompileError{
					Field:   typename,
					Message: err.Error(),
					Pos:     iter.Value().Pos(),
				}
			}
		}
	}

	return settings, nil
}

// compileType parses one type's policy struct.
func compileType(v cue.Value) (policy.TypePolicy, error) {
	tp := policy.TypePolicy{}

	keyFieldsVal := v.LookupPath(cue.ParsePath("keyFields"))
	if keyFieldsVal.Exists() {
		fields, err := stringList(keyFieldsVal, "keyFields")
		if err != nil {
			return tp, err
		}
		if len(fields) == 0 {
			return tp, &CompileError{
				Field:   "keyFields",
				Message: "must name at least one field when present",
				Pos:     keyFieldsVal.Pos(),
			}
		}
		tp.KeyFields = fields
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if fieldsVal.Exists() {
		iter, err := fieldsVal.Fields()
		if err != nil {
			return tp, formatCUEError(err)
		}
		tp.Fields = make(map[string]policy.FieldPolicy)
		for iter.Next() {
			name := strings.Trim(iter.Selector().String(), `"`)
			fp, err := compileField(iter.Value())
			if err != nil {
				return tp, err
			}
			tp.Fields[name] = fp
		}
	}

	return tp, nil
}

// compileField parses one field policy struct.
func compileField(v cue.Value) (policy.FieldPolicy, error) {
	fp := policy.FieldPolicy{}

	keyArgsVal := v.LookupPath(cue.ParsePath("keyArgs"))
	if keyArgsVal.Exists() {
		// keyArgs: false means "ignore all arguments", same as absent.
		if b, err := keyArgsVal.Bool(); err == nil {
			if b {
				return fp, &CompileError{
					Field:   "keyArgs",
					Message: "true is not a filter; list argument names or use false",
					Pos:     keyArgsVal.Pos(),
				}
			}
		} else {
			args, err := stringList(keyArgsVal, "keyArgs")
			if err != nil {
				return fp, err
			}
			if args == nil {
				args = []string{}
			}
			fp.KeyArgs = args
		}
	}

	mergeVal := v.LookupPath(cue.ParsePath("merge"))
	if mergeVal.Exists() {
		name, err := mergeVal.String()
		if err != nil {
			return fp, formatCUEError(err)
		}
		fn, err := policy.BuiltinMerge(name)
		if err != nil {
			return fp, &CompileError{
				Field:   "merge",
				Message: err.Error(),
				Pos:     mergeVal.Pos(),
			}
		}
		fp.Merge = fn
	}

	return fp, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a list of strings",
			Pos:     v.Pos(),
		}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError reports a configuration problem with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
