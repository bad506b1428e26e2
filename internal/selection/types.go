package selection

import (
	"fmt"

	"github.com/roach88/gqlcache/internal/ir"
)

// Shape is a selection set: the ordered list of fields requested at one
// level of a query.
type Shape []Field

// Field is one requested field with its call arguments and, for
// object-typed fields, its own nested selection.
type Field struct {
	// Name is the schema field name. Storage keys derive from Name,
	// never from Alias.
	Name string

	// Alias overrides the response key when set. Two calls to the same
	// field with different arguments can coexist in one result only
	// under distinct aliases.
	Alias string

	// Args are the field's call arguments in declaration order.
	Args []Argument

	// Of is the nested selection for object-typed fields. Empty for
	// leaves.
	Of Shape
}

// Argument is a named argument, either a literal value or a reference
// into the per-operation variables map. Exactly one of Value and
// Variable is set.
type Argument struct {
	Name     string
	Value    ir.Value
	Variable string
}

// ResponseKey returns the key this field occupies in a response object:
// the alias when present, the field name otherwise.
func (f Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// ArgValues resolves the field's arguments against the variables map.
// A variable reference with no entry in vars is an error; a field with
// no arguments resolves to an empty object.
func (f Field) ArgValues(vars ir.Object) (ir.Object, error) {
	args := make(ir.Object, len(f.Args))
	for _, a := range f.Args {
		if a.Variable != "" {
			v, ok := vars[a.Variable]
			if !ok {
				return nil, fmt.Errorf("field %q: variable $%s is not bound", f.Name, a.Variable)
			}
			args[a.Name] = v
			continue
		}
		if a.Value == nil {
			args[a.Name] = ir.Null{}
			continue
		}
		args[a.Name] = a.Value
	}
	return args, nil
}

// IsLeaf reports whether the field has no nested selection.
func (f Field) IsLeaf() bool {
	return len(f.Of) == 0
}
