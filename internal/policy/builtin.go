package policy

import (
	"fmt"

	"github.com/roach88/gqlcache/internal/ir"
)

// Builtin merge function names, usable from declarative configuration.
const (
	MergeOverwrite = "overwrite"
	MergeAppend    = "append"
)

// BuiltinMerge returns the named builtin merge function. "overwrite"
// returns nil: the engine's default behavior is already last-write-wins,
// so no function is needed.
func BuiltinMerge(name string) (MergeFunc, error) {
	switch name {
	case "", MergeOverwrite:
		return nil, nil
	case MergeAppend:
		return AppendMerge, nil
	default:
		return nil, fmt.Errorf("policy: unknown builtin merge %q", name)
	}
}

// AppendMerge concatenates incoming list elements onto the existing
// list. The canonical use is accumulation of pages under one storage
// key: a field keyed on everything but its pagination arguments
// receives each page as an incoming list and grows the stored one.
//
// Non-list existing values are replaced; a non-list incoming value is
// an error (the field's storage key is being used inconsistently).
func AppendMerge(existing, incoming ir.Value, ctx MergeContext) (ir.Value, error) {
	in, ok := incoming.(ir.List)
	if !ok {
		return nil, fmt.Errorf("policy: append merge on %q: incoming value is %T, not a list", ctx.FieldName(), incoming)
	}
	ex, ok := existing.(ir.List)
	if !ok {
		// First write, or previous value was not a list: start fresh.
		return incoming, nil
	}
	out := make(ir.List, 0, len(ex)+len(in))
	out = append(out, ex...)
	out = append(out, in...)
	return out, nil
}
