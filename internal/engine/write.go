package engine

import (
	"fmt"

	"github.com/roach88/gqlcache/internal/ir"
	"github.com/roach88/gqlcache/internal/policy"
	"github.com/roach88/gqlcache/internal/selection"
	"github.com/roach88/gqlcache/internal/store"
)

// ChangeSet reports the outcome of one write pass.
type ChangeSet struct {
	// WriteToken tags the pass; the same token appears in conflict log
	// lines produced during it.
	WriteToken string

	// Seq is the store's logical write sequence after the pass.
	Seq int64

	// Identities lists the entities whose records changed, sorted.
	// A subscription collaborator broadcasts these to watchers.
	Identities []string
}

// Write normalizes a query response into the store under the query
// root. data is the denormalized response tree shaped like shape; vars
// binds the shape's variable references.
func (c *Cache) Write(shape selection.Shape, data ir.Object, vars ir.Object) (ChangeSet, error) {
	return c.writeRoot(ir.RootQueryID, shape, data, vars)
}

// WriteMutation normalizes a mutation payload under the mutation root,
// keeping mutation fields from ever aliasing query fields.
func (c *Cache) WriteMutation(shape selection.Shape, data ir.Object, vars ir.Object) (ChangeSet, error) {
	return c.writeRoot(ir.RootMutationID, shape, data, vars)
}

func (c *Cache) writeRoot(rootID string, shape selection.Shape, data ir.Object, vars ir.Object) (ChangeSet, error) {
	if vars == nil {
		vars = ir.Object{}
	}

	token := c.tokens.Generate()
	c.store.Begin(token)

	w := &writer{cache: c, vars: vars}
	rec, merges, err := w.normalizeSelection(rootTypename(rootID), shape, data, rootID)
	if err != nil {
		return ChangeSet{}, err
	}
	if _, err := c.store.Merge(rootID, rec, merges); err != nil {
		return ChangeSet{}, wrapMergeErr(err, rootTypename(rootID), rootID)
	}

	cs := ChangeSet{
		WriteToken: token,
		Seq:        c.store.Seq(),
		Identities: c.store.LastChanged(),
	}
	c.logger.Debug("write pass complete",
		"write_token", token,
		"seq", cs.Seq,
		"changed", len(cs.Identities),
	)
	return cs, nil
}

// writer carries one write pass's state through the response walk.
type writer struct {
	cache *Cache
	vars  ir.Object
}

// normalizeSelection decomposes one object payload into a flat record
// keyed by storage keys, normalizing nested entities into their own
// records as it goes. It returns the record together with a resolver
// for the custom merge functions applying to its keys.
func (w *writer) normalizeSelection(typename string, shape selection.Shape, obj ir.Object, path string) (store.Record, func(string) store.MergeValueFunc, error) {
	rec := make(store.Record, len(shape))
	merges := make(map[string]store.MergeValueFunc)

	// The discriminator is data, not selection: carry it into the
	// record whenever the payload has one, selected or not.
	if tn, ok := obj.Typename(); ok {
		rec[ir.TypenameKey] = ir.String(tn)
	}

	for _, field := range shape {
		raw, ok := obj[field.ResponseKey()]
		if !ok {
			// Response lacked the field; nothing to write for it.
			continue
		}

		args, err := field.ArgValues(w.vars)
		if err != nil {
			return nil, nil, shapeErr(childPath(path, field), err)
		}

		fp, _ := w.cache.policies.Field(typename, field.Name)
		key, err := ir.StorageKeyOf(field.Name, args, fp.KeyArgs)
		if err != nil {
			return nil, nil, keyErr(typename, field.Name, path, err)
		}

		val, err := w.normalizeValue(field, raw, childPath(path, field))
		if err != nil {
			return nil, nil, err
		}
		rec[key] = val

		if fp.Merge != nil {
			merges[key] = wrapMerge(fp.Merge, typename, field.Name, args, childPath(path, field))
		}
	}

	resolver := func(storageKey string) store.MergeValueFunc {
		return merges[storageKey]
	}
	return rec, resolver, nil
}

// normalizeValue converts one field's payload into its stored form:
// entities become references, identity-less objects stay inline, lists
// normalize per element in order, scalars pass through.
func (w *writer) normalizeValue(field selection.Field, raw ir.Value, path string) (ir.Value, error) {
	switch val := raw.(type) {
	case ir.Object:
		if field.IsLeaf() {
			// A leaf selection does not look inside the value; store
			// the structure opaquely.
			return ir.Copy(val), nil
		}
		return w.normalizeObject(field, val, path)

	case ir.List:
		out := make(ir.List, len(val))
		for i, elem := range val {
			ev, err := w.normalizeValue(field, elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil

	case ir.Null:
		return ir.Null{}, nil

	default:
		if !field.IsLeaf() {
			// A sub-selection promises an object or list underneath;
			// a scalar here means the response does not match the shape.
			return nil, payloadErr(field.Name, path, fmt.Errorf("scalar %T under a sub-selection", raw))
		}
		return ir.Copy(raw), nil
	}
}

// normalizeObject handles an object payload under a non-leaf field:
// compute its identity, and either split it into its own record
// (returning a reference) or keep it inline under the parent.
func (w *writer) normalizeObject(field selection.Field, obj ir.Object, path string) (ir.Value, error) {
	typename, _ := obj.Typename()
	identity, normalized, err := ir.IdentityOf(typename, w.cache.policies.KeyFields(typename), obj)
	if err != nil {
		return nil, keyErr(typename, field.Name, path, err)
	}

	rec, merges, err := w.normalizeSelection(typename, field.Of, obj, path)
	if err != nil {
		return nil, err
	}

	if !normalized {
		// No identity: the structure lives inline under the parent,
		// keyed by storage keys like any record, but owned by it.
		return ir.Object(rec), nil
	}

	if _, err := w.cache.store.Merge(identity, rec, merges); err != nil {
		return nil, wrapMergeErr(err, typename, path)
	}
	return ir.Ref{ID: identity}, nil
}

// mergeCtx adapts one field call into the policy.MergeContext surface.
type mergeCtx struct {
	args  ir.Object
	field string
}

func (m mergeCtx) Args() ir.Object   { return m.args }
func (m mergeCtx) FieldName() string { return m.field }

// wrapMerge binds a policy merge function to its call-site context and
// converts failures into policy errors.
func wrapMerge(fn policy.MergeFunc, typename, field string, args ir.Object, path string) store.MergeValueFunc {
	ctx := mergeCtx{args: args, field: field}
	return func(existing, incoming ir.Value) (ir.Value, error) {
		out, err := fn(existing, incoming, ctx)
		if err != nil {
			return nil, policyErr(typename, field, path, err)
		}
		return out, nil
	}
}

// wrapMergeErr keeps already-classified cache errors intact and wraps
// anything else escaping the store.
func wrapMergeErr(err error, typename, path string) error {
	if _, ok := err.(*CacheError); ok {
		return err
	}
	return &CacheError{
		Code:     ErrCodePolicy,
		Message:  "merge failed",
		Typename: typename,
		Path:     path,
		Err:      err,
	}
}

func childPath(path string, field selection.Field) string {
	if path == "" || path == ir.RootQueryID || path == ir.RootMutationID {
		return field.ResponseKey()
	}
	return path + "." + field.ResponseKey()
}
