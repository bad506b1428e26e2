package engine

import (
	"fmt"

	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/policy"
	"github.com/roach88/gqlcache/internal/selection"
	"github.com/roach88/gqlcache/internal/store"
)

// Result is the outcome of a cache read.
type Result struct {
	// Data is the denormalized result tree, populated as far as the
	// store could resolve it. Fields that could not resolve at all are
	// absent from Data.
	Data ir.Object

	// Complete reports whether every requested field, at every depth,
	// resolved to a present value. Incompleteness is data, not an
	// error: the caller decides whether it means a network fetch.
	Complete bool

	// Missing lists what failed to resolve, for diagnostics.
	Missing []MissingField
}

// MissingField describes one unresolvable field.
type MissingField struct {
	// Path is the response path of the field (e.g. "book.publisher").
	Path string `json:"path"`

	// Identity is the record the field was read from.
	Identity string `json:"identity"`

	// StorageKey is the record key that had no usable value.
	StorageKey string `json:"storage_key"`

	// Reason distinguishes absence, dangling references, and selection
	// mismatches.
	Reason string `json:"reason"`
}

// Read denormalizes a selection against the store starting from the
// query root.
func (c *Cache) Read(shape selection.Shape, vars ir.Object) (Result, error) {
	return c.ReadFrom(ir.RootQueryID, shape, vars)
}

// ReadFrom denormalizes a selection starting from an arbitrary root:
// one of the well-known roots, or any entity identity.
func (c *Cache) ReadFrom(identity string, shape selection.Shape, vars ir.Object) (Result, error) {
	if vars == nil {
		vars = ir.Object{}
	}

	r := &reader{cache: c, vars: vars}
	rec, ok := c.store.Get(identity)
	if !ok {
		// Nothing stored under the root: every field is missing, but
		// the walk still runs to report each one.
		rec = store.Record{}
	}

	data, complete, err := r.readSelection(recordTypename(identity, rec), shape, rec, identity, "")
	if err != nil {
		return Result{}, err
	}
	if !ok {
		complete = false
	}
	return Result{Data: data, Complete: complete, Missing: r.missing}, nil
}

// reader carries one read's state through the selection walk.
type reader struct {
	cache   *Cache
	vars    ir.Object
	missing []MissingField
}

func (r *reader) miss(path, identity, key, reason string) {
	r.missing = append(r.missing, MissingField{
		Path:       path,
		Identity:   identity,
		StorageKey: key,
		Reason:     reason,
	})
}

// readSelection resolves one level of the selection against a record.
// Completeness is computed bottom-up; a missing field marks the level
// incomplete but never stops sibling resolution.
func (r *reader) readSelection(typename string, shape selection.Shape, rec store.Record, identity, path string) (ir.Object, bool, error) {
	out := make(ir.Object, len(shape))
	complete := true

	for _, field := range shape {
		fieldPath := joinPath(path, field.ResponseKey())

		args, err := field.ArgValues(r.vars)
		if err != nil {
			return nil, false, shapeErr(fieldPath, err)
		}

		fp, _ := r.cache.policies.Field(typename, field.Name)
		key, err := ir.StorageKeyOf(field.Name, args, fp.KeyArgs)
		if err != nil {
			return nil, false, keyErr(typename, field.Name, fieldPath, err)
		}

		stored, present := rec[key]

		if fp.Read != nil {
			ctx := readCtx{reader: r, args: args, rec: rec}
			var existing ir.Value
			if present {
				existing = stored
			}
			resolved, err := fp.Read(existing, ctx)
			if err != nil {
				return nil, false, policyErr(typename, field.Name, fieldPath, err)
			}
			stored, present = resolved, resolved != nil
		}

		if !present {
			r.miss(fieldPath, identity, key, "no value in record")
			complete = false
			continue
		}

		val, ok, err := r.readValue(field, stored, identity, key, fieldPath)
		if err != nil {
			return nil, false, err
		}
		if val != nil {
			out[field.ResponseKey()] = val
		}
		if !ok {
			complete = false
		}
	}

	return out, complete, nil
}

// readValue resolves one stored value against a field's selection.
// Returns the denormalized value (nil when nothing resolved), whether
// the field resolved completely, and any hard error.
func (r *reader) readValue(field selection.Field, stored ir.Value, identity, key, path string) (ir.Value, bool, error) {
	switch val := stored.(type) {
	case ir.Ref:
		rec, ok := r.cache.store.Resolve(val)
		if !ok {
			// A reference to an identity never written reads as a
			// missing field, not an error.
			r.miss(path, identity, key, fmt.Sprintf("dangling reference %s", val.ID))
			return nil, false, nil
		}
		if field.IsLeaf() {
			r.miss(path, identity, key, "leaf selection on an entity reference")
			return nil, false, nil
		}
		obj, complete, err := r.readSelection(recordTypename(val.ID, rec), field.Of, rec, val.ID, path)
		if err != nil {
			return nil, false, err
		}
		return obj, complete, nil

	case ir.Object:
		if field.IsLeaf() {
			return ir.Copy(val), true, nil
		}
		// Inline structure: its keys are storage keys, so it reads
		// like a record owned by the parent.
		tn, _ := val.Typename()
		obj, complete, err := r.readSelection(tn, field.Of, store.Record(val), identity, path)
		if err != nil {
			return nil, false, err
		}
		return obj, complete, nil

	case ir.Null:
		// A stored null is present data: the server said "nothing
		// here", which is a complete answer at any depth.
		return ir.Null{}, true, nil

	case ir.List:
		if field.IsLeaf() {
			return ir.Copy(val), true, nil
		}
		out := make(ir.List, 0, len(val))
		allOK := true
		for i, elem := range val {
			ev, ok, err := r.readValue(field, elem, identity, key, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, false, err
			}
			if !ok {
				// One unresolvable element makes the whole field
				// missing; keep walking for diagnostics.
				allOK = false
				continue
			}
			out = append(out, ev)
		}
		if !allOK {
			return nil, false, nil
		}
		return out, true, nil

	default:
		if !field.IsLeaf() {
			r.miss(path, identity, key, fmt.Sprintf("selection descends into a %T scalar", stored))
			return nil, false, nil
		}
		return ir.Copy(stored), true, nil
	}
}

// readCtx is the capability surface handed to read policy functions.
type readCtx struct {
	reader *reader
	args   ir.Object
	rec    store.Record
}

var _ policy.ReadContext = readCtx{}

// Args returns the field call's resolved arguments.
func (c readCtx) Args() ir.Object { return c.args }

// ToReference synthesizes a reference from a type discriminator and
// identifying fields, without consulting the store. This is the cache
// redirect primitive: a read function can answer with data normalized
// under a different original query by pointing at its identity.
func (c readCtx) ToReference(typename string, keyFields ir.Object) (ir.Ref, bool) {
	identity, ok, err := ir.IdentityOf(typename, c.reader.cache.policies.KeyFields(typename), keyFields)
	if err != nil || !ok {
		return ir.Ref{}, false
	}
	return ir.Ref{ID: identity}, true
}

// ReadField reads another storage key of the record currently being
// read.
func (c readCtx) ReadField(storageKey string) (ir.Value, bool) {
	v, ok := c.rec[storageKey]
	return v, ok
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
